package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/ledger"
)

type recordRequest struct {
	Subj string `json:"subj" binding:"required"`
	Obj  string `json:"obj" binding:"required"`
}

type verifyRequest struct {
	Hash          string          `json:"hash" binding:"required"`
	Proof         json.RawMessage `json:"proof" binding:"required"`
	PublicSignals []string        `json:"publicSignals" binding:"required"`
}

type chainRequest struct {
	URI string `json:"uri" binding:"required"`
}

type reproveRequest struct {
	Hash string `json:"hash" binding:"required,digest"`
}

var validatorsOnce sync.Once

// registerValidators adds the "digest" tag to gin's validator.
func registerValidators() {
	validatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("digest", func(fl validator.FieldLevel) bool {
				return ir.IsDigest(fl.Field().String())
			})
		}
	})
}

func (s *Server) prov(c *gin.Context) {
	switch action := c.Query("action"); action {
	case "record":
		s.record(c)
	case "verify":
		s.verify(c)
	case "chain":
		s.chain(c)
	case "reprove":
		s.reprove(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid action. Use ?action=record, ?action=verify, ?action=chain or ?action=reprove",
			"code":  ledger.ErrCodeInvalidInput,
		})
	}
}

func (s *Server) record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields: subj, obj")
		return
	}

	rec, err := s.ledger.RecordEvent(c.Request.Context(), req.Subj, req.Obj)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "record": rec})
}

// verify answers 400 only for missing fields; a proof that cannot be
// decoded is simply not valid.
func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || isNull(req.Proof) {
		badRequest(c, "Missing required fields: hash, proof, publicSignals")
		return
	}

	var proof ir.Proof
	if err := json.Unmarshal(req.Proof, &proof); err != nil {
		s.logger.Debug("verify: undecodable proof", "hash", req.Hash, "error", err)
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": s.ledger.VerifyProof(req.Hash, proof, req.PublicSignals)})
}

func (s *Server) chain(c *gin.Context) {
	var req chainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required field: uri")
		return
	}

	chain, err := s.ledger.GetChain(c.Request.Context(), req.URI)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain": chain})
}

func (s *Server) reprove(c *gin.Context) {
	var req reproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing or malformed field: hash")
		return
	}

	rec, err := s.ledger.Reprove(c.Request.Context(), req.Hash)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "record": rec})
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": ledger.ErrCodeInvalidInput})
}

// fail maps a ledger error to its HTTP status.
func (s *Server) fail(c *gin.Context, err error) {
	code := ledger.CodeOf(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("provenance request failed",
			"request_id", c.GetString(requestIDKey),
			"code", code,
			"error", err)
	}

	msg := err.Error()
	var le *ledger.Error
	if errors.As(err, &le) {
		msg = le.Message
		if le.Err != nil {
			msg += ": " + le.Err.Error()
		}
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// StatusFor maps a ledger error code to an HTTP status.
func StatusFor(code ledger.ErrorCode) int {
	switch code {
	case ledger.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ledger.ErrCodeDuplicateHash:
		return http.StatusConflict
	case ledger.ErrCodeNotFound:
		return http.StatusNotFound
	case ledger.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
