package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Items       repository.ItemRepository
	Lots        repository.LotRepository
	Movements   repository.StockMovementRepository
	Issues      repository.StockIssueRepository
	Stages      repository.StageMappingRepository
	Completions repository.StageCompletionSource
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el libro de inventario: si fn devuelve error no queda nada visible.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
	// RunReadOnly abre una transacción de solo lectura (simulación, listados).
	RunReadOnly(ctx context.Context, fn func(repos TxRepos) error) error
}

// Recorder recibe los eventos del motor para métricas.
type Recorder interface {
	MovementApplied(kind entity.MovementKind)
	// LotOperation op = allocate|rollback|simulate, outcome = ok|empty|validation|error.
	LotOperation(op, outcome string, elapsed time.Duration)
	SnapshotRecomputed(drift bool)
}

// NopRecorder descarta los eventos.
type NopRecorder struct{}

func (NopRecorder) MovementApplied(entity.MovementKind)        {}
func (NopRecorder) LotOperation(string, string, time.Duration) {}
func (NopRecorder) SnapshotRecomputed(bool)                    {}

// Clock fuente de tiempo inyectable (tests).
type Clock func() time.Time
