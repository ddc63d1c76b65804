package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abarak-biu/tf-encrypted/internal/config"
	"github.com/abarak-biu/tf-encrypted/internal/models"
	"github.com/abarak-biu/tf-encrypted/internal/ops"
	"github.com/abarak-biu/tf-encrypted/internal/tensor"
)

// ----- Payloads -----
// The JSON shape for creating/updating a tensor spec.
type TensorSpecCreatePayload struct {
	Name   string `json:"name" binding:"required"`
	Shape  []int  `json:"shape"` // empty or absent means scalar
	DType  string `json:"dtype" binding:"required"`
	Minval int64  `json:"minval"`
	Maxval int64  `json:"maxval"`
}

type TensorSpecUpdatePayload struct {
	Name   *string `json:"name,omitempty"`
	Shape  *[]int  `json:"shape,omitempty"`
	DType  *string `json:"dtype,omitempty"`
	Minval *int64  `json:"minval,omitempty"`
	Maxval *int64  `json:"maxval,omitempty"`
}

var errInt32Bounds = errors.New("minval and maxval must fit in int32 for dtype int32")

// validateSpecParams checks geometry and bounds the same way for saved specs
// and ad-hoc generation requests, returning the element count.
func validateSpecParams(shape []int, dt tensor.DType, minval, maxval int64) (int, error) {
	count, err := tensor.NumElements(shape)
	if err != nil {
		return 0, err
	}
	if minval >= maxval {
		return 0, ops.ErrRange
	}
	if dt == tensor.Int32 {
		if minval < math.MinInt32 || maxval > math.MaxInt32 {
			return 0, errInt32Bounds
		}
	}
	return count, nil
}

func encodeShape(shape []int) string {
	if shape == nil {
		shape = []int{}
	}
	b, _ := json.Marshal(shape)
	return string(b)
}

func decodeShape(s string) ([]int, error) {
	var shape []int
	if err := json.Unmarshal([]byte(s), &shape); err != nil {
		return nil, err
	}
	return shape, nil
}

func specResponse(ts models.TensorSpec) gin.H {
	shape, _ := decodeShape(ts.Shape)
	if shape == nil {
		shape = []int{}
	}
	return gin.H{
		"id":         ts.ID,
		"name":       ts.Name,
		"shape":      shape,
		"dtype":      ts.DType,
		"minval":     ts.Minval,
		"maxval":     ts.Maxval,
		"created_at": ts.CreatedAt,
		"updated_at": ts.UpdatedAt,
	}
}

// ----- Handlers -----
// ListTensorSpecs: GET /api/v1/tensor-specs
func ListTensorSpecs(c *gin.Context) {
	var specs []models.TensorSpec
	if err := config.DB.Order("name asc").Find(&specs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tensor specs: " + err.Error()})
		return
	}
	resp := make([]gin.H, 0, len(specs))
	for _, ts := range specs {
		resp = append(resp, specResponse(ts))
	}
	c.JSON(http.StatusOK, resp)
}

// GetTensorSpec: GET /api/v1/tensor-specs/:id
func GetTensorSpec(c *gin.Context) {
	idStr := c.Param("id")
	specID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tensor spec ID"})
		return
	}

	var ts models.TensorSpec
	if err := config.DB.First(&ts, "id = ?", specID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tensor spec not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, specResponse(ts))
}

// CreateTensorSpec: POST /api/v1/tensor-specs
func CreateTensorSpec(c *gin.Context) {
	var payload TensorSpecCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	dt, err := tensor.ParseDType(payload.DType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := validateSpecParams(payload.Shape, dt, payload.Minval, payload.Maxval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if count > config.Cfg.MaxTensorElements {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "shape exceeds the element limit"})
		return
	}

	// Only one spec per name.
	var existing models.TensorSpec
	if err := config.DB.Where("name = ?", payload.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "tensor spec with this name already exists"})
		return
	}

	ts := models.TensorSpec{
		ID:     uuid.New(),
		Name:   payload.Name,
		Shape:  encodeShape(payload.Shape),
		DType:  dt,
		Minval: payload.Minval,
		Maxval: payload.Maxval,
	}
	if err := config.DB.Create(&ts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create tensor spec: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, specResponse(ts))
}

// UpdateTensorSpec: PUT /api/v1/tensor-specs/:id
func UpdateTensorSpec(c *gin.Context) {
	idStr := c.Param("id")
	specID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tensor spec ID"})
		return
	}

	var existing models.TensorSpec
	if err := config.DB.First(&existing, "id = ?", specID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tensor spec not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error: " + err.Error()})
		}
		return
	}

	var payload TensorSpecUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	if payload.Name != nil {
		existing.Name = *payload.Name
	}
	if payload.Shape != nil {
		existing.Shape = encodeShape(*payload.Shape)
	}
	if payload.DType != nil {
		dt, err := tensor.ParseDType(*payload.DType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		existing.DType = dt
	}
	if payload.Minval != nil {
		existing.Minval = *payload.Minval
	}
	if payload.Maxval != nil {
		existing.Maxval = *payload.Maxval
	}

	// Re-validate the combined result before saving.
	shape, err := decodeShape(existing.Shape)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored shape is corrupt: " + err.Error()})
		return
	}
	count, err := validateSpecParams(shape, existing.DType, existing.Minval, existing.Maxval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if count > config.Cfg.MaxTensorElements {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "shape exceeds the element limit"})
		return
	}

	if err := config.DB.Save(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tensor spec: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, specResponse(existing))
}

// DeleteTensorSpec: DELETE /api/v1/tensor-specs/:id
func DeleteTensorSpec(c *gin.Context) {
	idStr := c.Param("id")
	specID, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tensor spec ID"})
		return
	}

	// Past generations keep their own copy of the parameters, so deleting
	// the preset never rewrites history.
	if err := config.DB.Delete(&models.TensorSpec{}, "id = ?", specID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete tensor spec: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "TensorSpec deleted"})
}
