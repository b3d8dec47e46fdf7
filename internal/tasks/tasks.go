package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Registered for image.Decode
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/email"
	"github.com/AVAproject2025/Luxbid/internal/services"
	"github.com/AVAproject2025/Luxbid/internal/storage"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
	TypeListingExpire = "listing:expire"
)

// NewClient creates an asynq client bound to the same Redis as rdb.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// Enqueuer is the slice of asynq.Client the queue adapters need.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailQueue adapts the task client to services.EmailEnqueuer.
type EmailQueue struct {
	client Enqueuer
}

// NewEmailQueue creates an EmailQueue on top of a task client.
func NewEmailQueue(client Enqueuer) *EmailQueue {
	return &EmailQueue{client: client}
}

// EnqueueEmail queues an email:deliver task.
func (q *EmailQueue) EnqueueEmail(to, subject, body string) error {
	task, err := NewEmailDeliveryTask(to, subject, body)
	if err != nil {
		return err
	}
	_, err = q.client.Enqueue(task)
	return err
}

// EmailTaskPayload is the payload of an email:deliver task.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewEmailDeliveryTask builds an email:deliver task.
func NewEmailDeliveryTask(to, subject, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload), nil
}

// ImageTaskPayload is the payload of an image:process task.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// NewImageProcessTask builds an image:process task.
func NewImageProcessTask(s3Key, listingID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, ListingID: listingID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue("images")), nil
}

// NewListingExpireTask builds a listing:expire sweep task.
func NewListingExpireTask() *asynq.Task {
	return asynq.NewTask(TypeListingExpire, nil)
}

// TaskProcessor holds the dependencies task handlers need.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	storageService storage.IS3Storage
	listingService services.IListingService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	listingService services.IListingService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		storageService: storageService,
		listingService: listingService,
	}
}

// SetupServer configures and starts an asynq server for the background
// worker. Returns the running server so the caller can Shutdown it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, error) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"images":   5,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("WARN: task %s failed: %v (payload: %s)", task.Type(), err, string(task.Payload()))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	mux.HandleFunc(TypeListingExpire, processor.HandleListingExpireTask)

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start task server: %w", err)
	}
	return srv, nil
}

// HandleEmailDeliveryTask renders headers around the payload body and hands
// the message to the configured sender.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", p.cfg.SmtpFromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(payload.Body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, []byte(sb.String())); err != nil {
		return err
	}
	log.Printf("Email task processed: To=%s, Subject=%s", payload.To, payload.Subject)
	return nil
}

// HandleImageProcessTask normalizes an uploaded listing image: enforce the
// size cap, resize down to the configured max dimension, re-encode as JPEG,
// overwrite the original object and attach the key to the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	s3Client := p.storageService.Client()
	getObjectOutput, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, upload likely failed", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data for %s: %w", payload.S3Key, err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes), deleting", payload.S3Key, len(imgData), maxSizeBytes)
		if err := p.storageService.DeleteObject(ctx, payload.S3Key); err != nil {
			log.Printf("WARN: failed to delete oversized object %s: %v", payload.S3Key, err)
		}
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Rejecting undecodable image %s: %v", payload.S3Key, err)
		if err := p.storageService.DeleteObject(ctx, payload.S3Key); err != nil {
			log.Printf("WARN: failed to delete invalid object %s: %v", payload.S3Key, err)
		}
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxDim := uint(p.cfg.ImageMaxDimension)
	processedData := imgData
	contentType := aws.ToString(getObjectOutput.ContentType)

	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
		}
		processedData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resized.Bounds().Dx(), resized.Bounds().Dy())
	}

	if _, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(processedData),
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
	}

	if err := p.listingService.AddImage(ctx, payload.ListingID, payload.S3Key); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("listing gone: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to attach image to listing %s: %w", payload.ListingID, err)
	}

	log.Printf("Image task processed: Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)
	return nil
}

// HandleListingExpireTask flips overdue ACTIVE listings to EXPIRED. Enqueued
// periodically by the background scheduler.
func (p *TaskProcessor) HandleListingExpireTask(ctx context.Context, t *asynq.Task) error {
	expired, err := p.listingService.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("Listing expiry sweep flipped %d listings", expired)
	}
	return nil
}
