//go:generate go run go.uber.org/mock/mockgen -source=driver.go -destination=../mocks/mock_imagegen.go -package=mocks

// Package imagegen simulates an image generator: on a fixed interval it
// stores a made-up, randomly tagged image and announces its id to every live
// connection.
package imagegen

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	faker "github.com/go-faker/faker/v4"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/live"
	"github.com/zoravur/bookshelf-live/internal/store"
	"github.com/zoravur/bookshelf-live/pkg/prng"
)

const maxTagsPerImage = 3

type ImageStore interface {
	ListTagIDs(ctx context.Context) ([]int64, error)
	CreateImage(ctx context.Context, img store.ImageFields) (int64, error)
}

type Broadcaster interface {
	Broadcast(msg live.Message) int
}

type Driver struct {
	store    ImageStore
	out      Broadcaster
	interval time.Duration
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(st ImageStore, out Broadcaster, interval time.Duration, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		store:    st,
		out:      out,
		interval: interval,
		log:      log,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed makes the uuids in generated image URLs reproducible.
func Seed(seed int64) {
	faker.SetCryptoSource(prng.New(seed))
}

// Run generates one image per interval until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		id, err := d.Tick(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			d.log.Warn("image generation failed", zap.Error(err))
		default:
			d.log.Debug("image generated", zap.Int64("image_id", id))
		}
		timer.Reset(d.interval)
	}
}

// Tick creates one image and broadcasts "[id]".
func (d *Driver) Tick(ctx context.Context) (int64, error) {
	tagIDs, err := d.store.ListTagIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tags: %w", err)
	}

	id, err := d.store.CreateImage(ctx, d.synthesize(tagIDs))
	if err != nil {
		return 0, fmt.Errorf("create image: %w", err)
	}

	d.out.Broadcast(live.RecordID(id))
	return id, nil
}

// Handler runs the driver for as long as the connection that owns it stays
// open. Connections served with it are anonymous and their frames are
// ignored.
func (d *Driver) Handler() live.Handler {
	return live.Handler{
		OnAdmit: func(ctx context.Context, _ *live.Conn) { d.Run(ctx) },
	}
}

func (d *Driver) synthesize(tagIDs []int64) store.ImageFields {
	d.mu.Lock()
	n := d.rnd.Intn(min(maxTagsPerImage, len(tagIDs)) + 1)
	d.mu.Unlock()

	return store.ImageFields{
		Prompt: faker.Sentence(),
		URL:    "https://images.bookshelf.local/" + faker.UUIDHyphenated() + ".png",
		TagIDs: lo.Samples(tagIDs, n),
	}
}
