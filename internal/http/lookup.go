package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/scanner"
)

const lookupTimeout = 15 * time.Second

// LookupController resolves scanned or typed codes to book metadata.
type LookupController struct {
	lookup  *metadata.Lookup
	decoder scanner.ImageDecoder
}

// NewLookupController creates the controller. decoder may be nil, in which
// case image uploads are not accepted.
func NewLookupController(lookup *metadata.Lookup, decoder scanner.ImageDecoder) *LookupController {
	return &LookupController{lookup: lookup, decoder: decoder}
}

// LookupResponse is the lookup outcome for one code.
type LookupResponse struct {
	Code string `json:"code"`
	metadata.Outcome
}

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	Code string `json:"code" binding:"required"`
}

// Lookup handles GET /api/lookup/:code
// A miss is a 200 with found=false: the client falls back to manual entry.
func (lc *LookupController) Lookup(c *gin.Context) {
	c.JSON(http.StatusOK, lc.resolve(c.Request.Context(), c.Param("code")))
}

// Scan handles POST /api/scan
// Codes shorter than scanner.MinCodeLength are rejected before any lookup.
func (lc *LookupController) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code is required")
		return
	}

	code, err := scanner.Accept(req.Code)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, lc.resolve(c.Request.Context(), code))
}

// ScanImage handles POST /api/scan/image (multipart field "image").
func (lc *LookupController) ScanImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondBadRequest(c, "image is required")
		return
	}
	f, err := file.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded image")
		return
	}
	defer f.Close()

	var codes []string
	err = scanner.Consume(c.Request.Context(), scanner.NewImageScanner(lc.decoder, f), func(code string) {
		codes = append(codes, code)
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "no barcode recognized in image", Code: "SCAN_FAILED"})
		return
	}
	if len(codes) == 0 {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "no usable barcode in image", Code: "SCAN_FAILED"})
		return
	}
	c.JSON(http.StatusOK, lc.resolve(c.Request.Context(), codes[0]))
}

func (lc *LookupController) resolve(ctx context.Context, code string) LookupResponse {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	return LookupResponse{Code: code, Outcome: lc.lookup.Lookup(ctx, code)}
}
