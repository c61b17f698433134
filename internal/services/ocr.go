package services

import (
	"context"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/gcp"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
}

// OCRService extracts text from uploaded submission images. It never
// fails the caller: when the vision backend errors the result carries
// the error text with zero confidence so grading can proceed.
type OCRService interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) *OCRResult
}

type visionOCRService struct {
	log    *logger.Logger
	vision gcp.Vision
}

func NewVisionOCRService(baseLog *logger.Logger, vision gcp.Vision) OCRService {
	serviceLog := baseLog.With("service", "VisionOCRService")
	return &visionOCRService{log: serviceLog, vision: vision}
}

func (vs *visionOCRService) ExtractText(ctx context.Context, data []byte, mimeType string) *OCRResult {
	res, err := vs.vision.OCRImageBytes(ctx, data, mimeType)
	if err != nil {
		vs.log.Warn("Vision OCR failed", "error", err.Error())
		return &OCRResult{
			Text:       "OCR processing failed: " + err.Error(),
			Confidence: 0,
			Provider:   "gcp_vision",
		}
	}
	return &OCRResult{
		Text:       res.PrimaryText,
		Confidence: res.Confidence,
		Provider:   res.Provider,
	}
}

type mockOCRService struct {
	log *logger.Logger
}

// NewMockOCRService is the fallback when no vision credentials are
// configured. Returns canned text so local development keeps working.
func NewMockOCRService(baseLog *logger.Logger) OCRService {
	serviceLog := baseLog.With("service", "MockOCRService")
	return &mockOCRService{log: serviceLog}
}

func (ms *mockOCRService) ExtractText(ctx context.Context, data []byte, mimeType string) *OCRResult {
	ms.log.Debug("Serving mock OCR result", "bytes", len(data))
	return &OCRResult{
		Text:       "Sample extracted text from image. This is a mock response for development.",
		Confidence: 0.95,
		Provider:   "mock",
	}
}
