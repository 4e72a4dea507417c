package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

type route struct {
	sub     Subscription
	handler HandlerFunc
}

// Pipeline wires one retrying consumer per order topic plus the dead-letter
// sink onto a Subscriber.
type Pipeline struct {
	subscriber Subscriber
	routes     []route
	log        *slog.Logger
}

// PipelineOption customizes the consumers built by NewPipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	processors   map[domain.Topic]HandlerFunc
	retrierOpts  []RetrierOption
	consumerOpts []ConsumerOption
}

// WithTopicProcessor installs a processor on the consumer of topic.
func WithTopicProcessor(topic domain.Topic, fn HandlerFunc) PipelineOption {
	return func(o *pipelineOptions) { o.processors[topic] = fn }
}

// WithRetrierOptions passes options to the shared Retrier.
func WithRetrierOptions(opts ...RetrierOption) PipelineOption {
	return func(o *pipelineOptions) { o.retrierOpts = append(o.retrierOpts, opts...) }
}

// WithConsumerOptions passes options to every order consumer.
func WithConsumerOptions(opts ...ConsumerOption) PipelineOption {
	return func(o *pipelineOptions) { o.consumerOpts = append(o.consumerOpts, opts...) }
}

// NewPipeline builds the consumers for every order topic and the dead-letter
// consumer. Recovery republishes through producer.
func NewPipeline(
	log *slog.Logger,
	subscriber Subscriber,
	producer *Producer,
	store EventSaver,
	policy RetryPolicy,
	opts ...PipelineOption,
) (*Pipeline, error) {
	o := pipelineOptions{processors: make(map[domain.Topic]HandlerFunc)}
	for _, opt := range opts {
		opt(&o)
	}

	retrier, err := NewRetrier(log, policy, o.retrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	router := NewDeadLetterRouter(log, producer, store)

	p := &Pipeline{
		subscriber: subscriber,
		log:        log.With("component", "pipeline"),
	}

	for _, topic := range domain.OrderTopics() {
		copts := o.consumerOpts
		if fn, ok := o.processors[topic]; ok {
			copts = append(copts[:len(copts):len(copts)], WithProcessor(fn))
		}
		consumer, err := NewConsumer(log, topic, retrier, store, router, copts...)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.routes = append(p.routes, route{sub: SubscriptionFor(consumer.Topic()), handler: consumer.Handle})
	}

	sink := NewDeadLetterConsumer(log, store)
	p.routes = append(p.routes, route{
		sub:     SubscriptionFor(domain.TopicOrderDeadLetter),
		handler: sink.Handle,
	})

	return p, nil
}

// Subscriptions lists the topics and groups the pipeline listens on.
func (p *Pipeline) Subscriptions() []Subscription {
	subs := make([]Subscription, len(p.routes))
	for i, r := range p.routes {
		subs[i] = r.sub
	}
	return subs
}

// Run starts one listener per subscription and blocks until ctx is cancelled
// or a listener fails. Listeners never share a goroutine, so a slow topic does
// not delay the others.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range p.routes {
		g.Go(func() error {
			p.log.InfoContext(gctx, "listener started",
				slog.String("topic", r.sub.Topic.String()),
				slog.String("group", r.sub.Group),
			)
			if err := p.subscriber.Subscribe(gctx, r.sub, r.handler); err != nil {
				return fmt.Errorf("listener %s: %w", r.sub.Topic, err)
			}
			p.log.InfoContext(gctx, "listener stopped", slog.String("topic", r.sub.Topic.String()))
			return nil
		})
	}

	return g.Wait()
}
