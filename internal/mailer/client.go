package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/taskboard/internal"
)

// Dispatcher is what the OTP and invitation flows depend on. Send is
// synchronous so the caller can observe delivery failure and roll back the
// record it just wrote.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
	Enqueue(to, subject, body string)
}

type MailJob struct {
	To      string
	Subject string
	Body    string
}

type Worker struct {
	ID         int
	WorkerPool chan chan MailJob
	JobChannel chan MailJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan MailJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan MailJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(MailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing mail job", "worker_id", w.ID, "to", job.To)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Client talks to a REST mail provider. Synchronous sends go straight out;
// notification mail goes through the job queue and worker pool so request
// handlers never wait on the provider.
type Client struct {
	apiURL      string
	apiKey      string
	fromAddress string
	sendTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	jobQueue   chan MailJob
	workerPool chan chan MailJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	APIURL       string
	APIKey       string
	FromAddress  string
	SendTimeout  time.Duration
	MaxWorkers   int
	JobQueueSize int
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	client := &Client{
		apiURL:      config.APIURL,
		apiKey:      config.APIKey,
		fromAddress: config.FromAddress,
		sendTimeout: sendTimeout,
		httpClient:  &http.Client{Timeout: sendTimeout},
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan MailJob, jobQueueSize),
		workerPool: make(chan chan MailJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processMailJob)
		}

		go c.dispatch()

		c.logger.Info("mailer worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					c.logger.Info("mailer dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("mailer dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("mailer dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down mailer client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("mailer client shutdown complete")
}

// Send delivers one message synchronously. OTP issuance and invitations use
// this path: a provider failure must surface to the caller.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return internal.NewValidationError("recipient address is required", internal.ErrCodeInvalidEmail)
	}

	payload := map[string]string{
		"from":    c.fromAddress,
		"to":      to,
		"subject": subject,
		"text":    body,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("mail provider request failed", "to", to, "error", err)
		return internal.NewMailDispatchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("mail provider rejected message", "to", to, "status", resp.StatusCode)
		return internal.NewMailDispatchError(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	c.logger.Info("mail sent", "to", to, "subject", subject)
	return nil
}

// Enqueue schedules notification mail on the worker pool. Failures are
// logged by the worker; callers do not depend on delivery.
func (c *Client) Enqueue(to, subject, body string) {
	job := MailJob{To: to, Subject: subject, Body: body}

	select {
	case c.jobQueue <- job:
	default:
		c.logger.Warn("mail queue full, dropping notification", "to", to, "subject", subject)
	}
}

func (c *Client) processMailJob(job MailJob) {
	if err := c.Send(c.ctx, job.To, job.Subject, job.Body); err != nil {
		c.logger.Error("queued mail delivery failed", "to", job.To, "error", err)
	}
}
