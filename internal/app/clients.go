package app

import (
	"os"
	"strings"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/gcp"
	"github.com/sharmaji2007/student-counsellor-system/internal/clients/openai"
	"github.com/sharmaji2007/student-counsellor-system/internal/clients/redis"
	"github.com/sharmaji2007/student-counsellor-system/internal/clients/twilio"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

// Clients holds external integrations. Every field is optional: a nil
// client selects the corresponding fallback service.
type Clients struct {
	RateCounter redis.RateCounter
	GcpBucket   gcp.BucketService
	GcpVision   gcp.Vision
	Openai      openai.Client
	Twilio      twilio.Client
}

func wireClients(log *logger.Logger) Clients {
	log.Info("Wiring clients...")
	var c Clients

	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		counter, err := redis.NewRateCounter(log)
		if err != nil {
			log.Warn("Redis unavailable, rate limits are per-process", "error", err.Error())
		} else {
			c.RateCounter = counter
		}
	}

	if strings.TrimSpace(os.Getenv("UPLOAD_GCS_BUCKET_NAME")) != "" {
		bucket, err := gcp.NewBucketService(log)
		if err != nil {
			log.Warn("GCS unavailable, uploads go to local disk", "error", err.Error())
		} else {
			c.GcpBucket = bucket
		}
	}

	if strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")) != "" ||
		strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")) != "" {
		vision, err := gcp.NewVision(log)
		if err != nil {
			log.Warn("Vision unavailable, OCR uses mock results", "error", err.Error())
		} else {
			c.GcpVision = vision
		}
	}

	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		ai, err := openai.NewFromEnv(log)
		if err != nil {
			log.Warn("OpenAI unavailable, quizzes use mock questions", "error", err.Error())
		} else {
			c.Openai = ai
		}
	}

	if strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")) != "" {
		sms, err := twilio.NewFromEnv(log)
		if err != nil {
			log.Warn("Twilio unavailable, SOS alerts are log-only", "error", err.Error())
		} else {
			c.Twilio = sms
		}
	}

	return c
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.RateCounter != nil {
		_ = c.RateCounter.Close()
	}
	if c.GcpVision != nil {
		_ = c.GcpVision.Close()
	}
}
