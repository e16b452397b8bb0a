// Package vault holds accepted artifacts in an append-only sequence and
// tracks artifacts pending human sign-off.
package vault

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/pipeline"
)

// Store is the optional write-behind persistence for vaulted artifacts.
type Store interface {
	Save(art *pipeline.FinalArtifact) error
	LoadAll() ([]*pipeline.FinalArtifact, error)
	Close() error
}

// Vault is the single-writer artifact ledger. Artifacts are appended,
// never mutated or removed. Pending artifacts sit outside the ledger
// until an explicit accept or reject.
type Vault struct {
	mu      sync.RWMutex
	ledger  []*pipeline.FinalArtifact
	pending map[string]*pipeline.FinalArtifact
	pendSeq []string
	store   Store
	bus     *events.Bus
	logger  *slog.Logger
}

func New(store Store, bus *events.Bus, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vault{
		pending: make(map[string]*pipeline.FinalArtifact),
		store:   store,
		bus:     bus,
		logger:  logger,
	}
	if store != nil {
		arts, err := store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load vault: %w", err)
		}
		v.ledger = arts
		logger.Info("vault loaded", "artifacts", len(arts))
	}
	return v, nil
}

// Append adds an artifact to the ledger.
func (v *Vault) Append(art *pipeline.FinalArtifact) error {
	v.mu.Lock()
	v.ledger = append(v.ledger, art)
	v.mu.Unlock()

	if v.store != nil {
		if err := v.store.Save(art); err != nil {
			return fmt.Errorf("persist artifact %s: %w", art.ID, err)
		}
	}

	v.publish(events.NewTypedEvent(events.SourceVault, events.ArtifactVaultedPayload{
		ArtifactID: art.ID,
		Score:      art.VerificationScore,
	}))
	v.logger.Info("artifact vaulted", "artifact", art.ID, "score", art.VerificationScore)
	return nil
}

// Flag parks an artifact for human sign-off.
func (v *Vault) Flag(art *pipeline.FinalArtifact) {
	v.mu.Lock()
	if _, exists := v.pending[art.ID]; !exists {
		v.pending[art.ID] = art
		v.pendSeq = append(v.pendSeq, art.ID)
	}
	v.mu.Unlock()

	reason := ""
	if art.HumanActionRequired != nil {
		reason = *art.HumanActionRequired
	}
	v.publish(events.NewTypedEvent(events.SourceVault, events.ArtifactPendingPayload{
		ArtifactID: art.ID,
		Score:      art.VerificationScore,
		Reason:     reason,
	}))
	v.logger.Info("artifact pending sign-off", "artifact", art.ID, "score", art.VerificationScore)
}

// Accept resolves a pending artifact into the ledger.
func (v *Vault) Accept(id string) error {
	v.mu.Lock()
	art, ok := v.pending[id]
	if ok {
		delete(v.pending, id)
		v.dropPendSeq(id)
	}
	v.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending artifact: %s", id)
	}

	v.publish(events.NewTypedEvent(events.SourceVault, events.ArtifactResolvedPayload{
		ArtifactID: id,
		Accepted:   true,
	}))
	return v.Append(art)
}

// Reject discards a pending artifact.
func (v *Vault) Reject(id string) error {
	v.mu.Lock()
	_, ok := v.pending[id]
	if ok {
		delete(v.pending, id)
		v.dropPendSeq(id)
	}
	v.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending artifact: %s", id)
	}

	v.publish(events.NewTypedEvent(events.SourceVault, events.ArtifactResolvedPayload{
		ArtifactID: id,
		Accepted:   false,
	}))
	v.logger.Info("artifact rejected", "artifact", id)
	return nil
}

// Get finds an artifact by id in the ledger or the pending set.
func (v *Vault) Get(id string) (*pipeline.FinalArtifact, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if art, ok := v.pending[id]; ok {
		return art, true
	}
	for _, art := range v.ledger {
		if art.ID == id {
			return art, true
		}
	}
	return nil, false
}

// Snapshot returns the ledger in append order.
func (v *Vault) Snapshot() []*pipeline.FinalArtifact {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]*pipeline.FinalArtifact, len(v.ledger))
	copy(out, v.ledger)
	return out
}

// Pending returns pending artifacts in flag order.
func (v *Vault) Pending() []*pipeline.FinalArtifact {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]*pipeline.FinalArtifact, 0, len(v.pendSeq))
	for _, id := range v.pendSeq {
		if art, ok := v.pending[id]; ok {
			out = append(out, art)
		}
	}
	return out
}

// Size returns the ledger length.
func (v *Vault) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ledger)
}

func (v *Vault) dropPendSeq(id string) {
	for i, p := range v.pendSeq {
		if p == id {
			v.pendSeq = append(v.pendSeq[:i], v.pendSeq[i+1:]...)
			return
		}
	}
}

func (v *Vault) publish(e events.Event) {
	if v.bus != nil {
		v.bus.Publish(e)
	}
}
