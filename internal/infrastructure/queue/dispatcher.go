package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hockeyunion/membership/internal/api/metrics"
	"github.com/hockeyunion/membership/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes profile provisioning jobs to a fixed set of workers using
// consistent hashing on the subject, so jobs for one account run in order.
type Dispatcher struct {
	workers     []chan ports.ProvisionInput
	provisioner ports.ProfileProvisioner
	log         zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, provisioner ports.ProfileProvisioner, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:     make([]chan ports.ProvisionInput, numWorkers),
		provisioner: provisioner,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ProvisionInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a job to the worker responsible for its subject. It never
// blocks: when that worker's buffer is full the job is dropped and logged,
// and the member client creates the profile itself after sign-up.
func (d *Dispatcher) Enqueue(job ports.ProvisionInput) {
	idx := d.shardIndex(job.Subject)
	select {
	case d.workers[idx] <- job:
		metrics.ProvisioningQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ProvisioningTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("subject", job.Subject).
			Int("worker_id", idx).
			Msg("provisioning queue full, job dropped")
	}
}

// shardIndex maps a subject deterministically to a worker index.
func (d *Dispatcher) shardIndex(subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subject))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ProvisionInput) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.ProvisioningQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

			start := time.Now()
			err := d.provisioner.Process(ctx, job)
			metrics.ProvisioningDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.ProvisioningTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("subject", job.Subject).
					Int("worker_id", id).
					Msg("profile provisioning failed")
				continue
			}
			metrics.ProvisioningTotal.WithLabelValues("created").Inc()
		}
	}
}
