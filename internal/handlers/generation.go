package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abarak-biu/tf-encrypted/internal/config"
	"github.com/abarak-biu/tf-encrypted/internal/events"
	"github.com/abarak-biu/tf-encrypted/internal/models"
	"github.com/abarak-biu/tf-encrypted/internal/ops"
	"github.com/abarak-biu/tf-encrypted/internal/rng"
	"github.com/abarak-biu/tf-encrypted/internal/tensor"
)

// generationRequest is the JSON payload for executing a generation. Callers
// either reference a saved spec by ID or name, or inline the full parameters.
// The seed is consumed for this one call and never persisted.
type generationRequest struct {
	SpecID   string  `json:"spec_id,omitempty"`
	SpecName string  `json:"spec_name,omitempty"`
	Shape    []int   `json:"shape,omitempty"`
	DType    string  `json:"dtype,omitempty"`
	Minval   int64   `json:"minval,omitempty"`
	Maxval   int64   `json:"maxval,omitempty"`
	Seed     []int32 `json:"seed" binding:"required"`
}

// replayRequest carries the seed for re-deriving a recorded generation.
type replayRequest struct {
	Seed []int32 `json:"seed" binding:"required"`
}

// checksumOf hashes the values as they appear on the wire: each element
// little-endian at its natural width.
func checksumOf[T tensor.Element](vals []T) string {
	h := sha256.New()
	switch vs := any(vals).(type) {
	case []int32:
		var b [4]byte
		for _, v := range vs {
			binary.LittleEndian.PutUint32(b[:], uint32(v))
			h.Write(b[:])
		}
	case []int64:
		var b [8]byte
		for _, v := range vs {
			binary.LittleEndian.PutUint64(b[:], uint64(v))
			h.Write(b[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// seedFingerprint hashes the packed seed bytes. The words themselves are
// never stored or logged.
func seedFingerprint(seed []int32) (string, error) {
	key, err := ops.SeedKey(seed)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key[:])
	return hex.EncodeToString(sum[:]), nil
}

// runGeneration executes the op for the given dtype and returns the values,
// their count and the payload checksum.
func runGeneration(shape []int, dt tensor.DType, minval, maxval int64, seed []int32) (interface{}, int, string, error) {
	switch dt {
	case tensor.Int64:
		out, err := ops.Int64(shape, seed, minval, maxval)
		if err != nil {
			return nil, 0, "", err
		}
		return out.Data(), out.Len(), checksumOf(out.Data()), nil
	default: // tensor.Int32; dtype is validated before we get here
		out, err := ops.Int32(shape, seed, int32(minval), int32(maxval))
		if err != nil {
			return nil, 0, "", err
		}
		return out.Data(), out.Len(), checksumOf(out.Data()), nil
	}
}

func generationErrorStatus(err error) int {
	switch {
	case errors.Is(err, rng.ErrInit):
		return http.StatusServiceUnavailable
	case errors.Is(err, ops.ErrSeedLen),
		errors.Is(err, ops.ErrRange),
		errors.Is(err, tensor.ErrBadShape),
		errors.Is(err, tensor.ErrDType),
		errors.Is(err, errInt32Bounds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func requestUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return uuid.UUID{}, false
	}
	return userID, true
}

func rejectAuditor(c *gin.Context) bool {
	if c.GetString("user_role") == string(models.RoleAuditor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Auditors have read-only access"})
		return true
	}
	return false
}

// ExecuteGeneration handles POST /api/v1/generations/execute
func ExecuteGeneration(c *gin.Context) {
	if rejectAuditor(c) {
		return
	}

	var req generationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	// 1) Resolve parameters, either from a saved spec or inline.
	shape := req.Shape
	dtypeName := req.DType
	minval, maxval := req.Minval, req.Maxval
	var specID *uuid.UUID

	if req.SpecID != "" || req.SpecName != "" {
		var ts models.TensorSpec
		var err error
		if req.SpecID != "" {
			id, perr := uuid.Parse(req.SpecID)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid spec_id"})
				return
			}
			err = config.DB.First(&ts, "id = ?", id).Error
		} else {
			err = config.DB.Where("name = ?", req.SpecName).First(&ts).Error
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Tensor spec not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error: " + err.Error()})
			}
			return
		}
		shape, err = decodeShape(ts.Shape)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stored shape is corrupt: " + err.Error()})
			return
		}
		dtypeName = string(ts.DType)
		minval, maxval = ts.Minval, ts.Maxval
		specID = &ts.ID
	}

	// 2) Validate geometry and bounds before touching the cipher.
	dt, err := tensor.ParseDType(dtypeName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := validateSpecParams(shape, dt, minval, maxval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if count > config.Cfg.MaxTensorElements {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "requested tensor exceeds the element limit"})
		return
	}

	// 3) Fingerprint the seed; only the hash is kept.
	fingerprint, err := seedFingerprint(req.Seed)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 4) Run the draw.
	values, n, checksum, err := runGeneration(shape, dt, minval, maxval, req.Seed)
	if err != nil {
		c.JSON(generationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	// 5) Record the audit row.
	gen := models.Generation{
		ID:              uuid.New(),
		TensorSpecID:    specID,
		Shape:           encodeShape(shape),
		DType:           dt,
		Minval:          minval,
		Maxval:          maxval,
		ElementCount:    n,
		SeedFingerprint: fingerprint,
		Checksum:        checksum,
		AdminUserID:     userID,
	}
	if err := config.DB.Create(&gen).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save generation"})
		return
	}

	events.PublishGeneration(&gen)

	if shape == nil {
		shape = []int{}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         gen.ID,
		"shape":      shape,
		"dtype":      dt,
		"minval":     minval,
		"maxval":     maxval,
		"values":     values,
		"checksum":   checksum,
		"created_at": gen.CreatedAt,
	})
}

// ReplayGeneration handles POST /api/v1/generations/replay/:id
func ReplayGeneration(c *gin.Context) {
	if rejectAuditor(c) {
		return
	}

	genID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid generation ID"})
		return
	}

	var original models.Generation
	if err := config.DB.First(&original, "id = ?", genID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Generation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error: " + err.Error()})
		}
		return
	}

	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	// 1) The supplied seed must match the recorded fingerprint before
	// anything is derived.
	fingerprint, err := seedFingerprint(req.Seed)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if subtle.ConstantTimeCompare([]byte(fingerprint), []byte(original.SeedFingerprint)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Seed does not match the recorded fingerprint"})
		return
	}

	// 2) Re-run with the recorded parameters.
	shape, err := decodeShape(original.Shape)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored shape is corrupt: " + err.Error()})
		return
	}
	values, n, checksum, err := runGeneration(shape, original.DType, original.Minval, original.Maxval, req.Seed)
	if err != nil {
		c.JSON(generationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	// 3) Record the replay as its own audit row pointing at the original.
	replay := models.Generation{
		ID:              uuid.New(),
		TensorSpecID:    original.TensorSpecID,
		Shape:           original.Shape,
		DType:           original.DType,
		Minval:          original.Minval,
		Maxval:          original.Maxval,
		ElementCount:    n,
		SeedFingerprint: original.SeedFingerprint,
		Checksum:        checksum,
		AdminUserID:     userID,
		IsReplay:        true,
		OriginalID:      &original.ID,
	}
	if err := config.DB.Create(&replay).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save replay"})
		return
	}

	events.PublishGeneration(&replay)

	c.JSON(http.StatusOK, gin.H{
		"id":                replay.ID,
		"original_id":       original.ID,
		"match":             checksum == original.Checksum,
		"checksum":          checksum,
		"original_checksum": original.Checksum,
		"values":            values,
	})
}

func generationSummary(g models.Generation) gin.H {
	shape, _ := decodeShape(g.Shape)
	if shape == nil {
		shape = []int{}
	}
	return gin.H{
		"id":               g.ID,
		"tensor_spec_id":   g.TensorSpecID,
		"shape":            shape,
		"dtype":            g.DType,
		"minval":           g.Minval,
		"maxval":           g.Maxval,
		"element_count":    g.ElementCount,
		"seed_fingerprint": g.SeedFingerprint,
		"checksum":         g.Checksum,
		"admin_user_id":    g.AdminUserID,
		"is_replay":        g.IsReplay,
		"original_id":      g.OriginalID,
		"created_at":       g.CreatedAt,
	}
}

// ListGenerations handles GET /api/v1/generations
func ListGenerations(c *gin.Context) {
	var gens []models.Generation
	if err := config.DB.Order("created_at desc").Find(&gens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch generations: " + err.Error()})
		return
	}

	resp := make([]gin.H, 0, len(gens))
	for _, g := range gens {
		resp = append(resp, generationSummary(g))
	}
	c.JSON(http.StatusOK, resp)
}

// GetGeneration handles GET /api/v1/generations/:id
// Values are not stored, so this returns the audit metadata only; use
// replay with the original seed to reproduce the payload.
func GetGeneration(c *gin.Context) {
	genID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid generation ID"})
		return
	}

	var gen models.Generation
	if err := config.DB.First(&gen, "id = ?", genID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Generation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, generationSummary(gen))
}
