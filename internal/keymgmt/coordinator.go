package keymgmt

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// Material is what one session holds: the shared key and its own nonce.
type Material struct {
	Key        Key
	Nonce      Nonce
	Generation string
	// Loaded tells whether the key came from the slot rather than from Generate.
	Loaded bool
}

// Coordinator hands out key material to sessions.
type Coordinator struct {
	Slot      Slot
	Random    io.Reader
	SessionID string
	Now       func() time.Time
}

func NewCoordinator(slot Slot, sessionID string) *Coordinator {
	return &Coordinator{Slot: slot, Random: rand.Reader, SessionID: sessionID, Now: time.Now}
}

// Generate samples a new key, a nonce and a generation tag. Nothing is stored until Persist.
func (c *Coordinator) Generate(ctx context.Context) (*Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Material{}
	if _, err := io.ReadFull(c.random(), m.Key[:]); err != nil {
		return nil, errorcode.New(errorcode.ErrorPersistence, errorcode.StageKey, errors.Wrap(err, "无法生成密钥"))
	}
	if err := c.fillNonce(m); err != nil {
		return nil, err
	}

	generation, err := uuid.NewRandomFromReader(c.random())
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorPersistence, errorcode.StageKey, errors.Wrap(err, "无法生成密钥代标识"))
	}
	m.Generation = generation.String()

	log.Debugf("已生成密钥代 %v", m.Generation)
	return m, nil
}

// Load borrows the key in the slot and samples a fresh nonce for this session.
func (c *Coordinator) Load(ctx context.Context) (*Material, error) {
	key, meta, err := c.Slot.Load(ctx)
	if err != nil {
		return nil, err
	}

	m := &Material{Key: key, Loaded: true}
	if meta != nil {
		m.Generation = meta.Generation
		log.Infof("已载入密钥代 %v (会话 %v 于 %v 写入)", meta.Generation, meta.SessionID, meta.CreatedAt.Format(time.RFC3339))
	}
	if err = c.fillNonce(m); err != nil {
		return nil, err
	}

	return m, nil
}

// Persist makes m the current key of the slot.
func (c *Coordinator) Persist(ctx context.Context, m *Material) error {
	meta := &SlotMetadata{
		Version:    SlotVersion,
		Generation: m.Generation,
		SHA256:     KeyDigest(m.Key),
		SessionID:  c.SessionID,
		CreatedAt:  c.now().UTC(),
	}

	return c.Slot.Store(ctx, m.Key, meta)
}

func (c *Coordinator) fillNonce(m *Material) error {
	if _, err := io.ReadFull(c.random(), m.Nonce[:]); err != nil {
		return errorcode.New(errorcode.ErrorPersistence, errorcode.StageKey, errors.Wrap(err, "无法生成 nonce"))
	}

	return nil
}

func (c *Coordinator) random() io.Reader {
	if c.Random == nil {
		return rand.Reader
	}

	return c.Random
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}

	return c.Now()
}
