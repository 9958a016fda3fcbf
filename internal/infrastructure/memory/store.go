// Package memory implementa los puertos del motor de inventario en memoria.
// Cada transacción trabaja sobre una copia del estado y solo la publica si fn no falla,
// con un único escritor a la vez (equivalente a bloquear todas las filas).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	items       map[int64]*entity.Item
	lots        map[int64]*entity.Lot
	movements   map[int64]*entity.StockMovement
	issues      map[int64]*entity.StockIssue
	mappings    map[int64]*entity.StageMapping
	completions []entity.StageCompletion

	nextItem, nextLot, nextMovement, nextIssue, nextMapping int64
}

func newState() *state {
	return &state{
		items:     make(map[int64]*entity.Item),
		lots:      make(map[int64]*entity.Lot),
		movements: make(map[int64]*entity.StockMovement),
		issues:    make(map[int64]*entity.StockIssue),
		mappings:  make(map[int64]*entity.StageMapping),
	}
}

func (s *state) clone() *state {
	c := &state{
		items:        make(map[int64]*entity.Item, len(s.items)),
		lots:         make(map[int64]*entity.Lot, len(s.lots)),
		movements:    make(map[int64]*entity.StockMovement, len(s.movements)),
		issues:       make(map[int64]*entity.StockIssue, len(s.issues)),
		mappings:     make(map[int64]*entity.StageMapping, len(s.mappings)),
		completions:  append([]entity.StageCompletion(nil), s.completions...),
		nextItem:     s.nextItem,
		nextLot:      s.nextLot,
		nextMovement: s.nextMovement,
		nextIssue:    s.nextIssue,
		nextMapping:  s.nextMapping,
	}
	for id, v := range s.items {
		cp := *v
		c.items[id] = &cp
	}
	for id, v := range s.lots {
		cp := *v
		c.lots[id] = &cp
	}
	for id, v := range s.movements {
		cp := *v
		c.movements[id] = &cp
	}
	for id, v := range s.issues {
		c.issues[id] = copyIssue(v)
	}
	for id, v := range s.mappings {
		cp := *v
		c.mappings[id] = &cp
	}
	return c
}

func copyIssue(v *entity.StockIssue) *entity.StockIssue {
	cp := *v
	cp.MovementIDs = append([]int64(nil), v.MovementIDs...)
	return &cp
}

// Store almacén en memoria; implementa inventory.TxRunner.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Run ejecuta fn sobre una copia del estado y la confirma solo si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Infrastructure("iniciar transacción", err)
	}
	work := s.st.clone()
	if err := fn(s.repos(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.Infrastructure("confirmar transacción", err)
	}
	s.st = work
	return nil
}

// RunReadOnly ejecuta fn sobre una copia que siempre se descarta.
func (s *Store) RunReadOnly(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Infrastructure("iniciar transacción", err)
	}
	return fn(s.repos(s.st.clone()))
}

func (s *Store) repos(st *state) inventory.TxRepos {
	return inventory.TxRepos{
		Items:       &itemRepo{st: st, now: s.now},
		Lots:        &lotRepo{st: st},
		Movements:   &movementRepo{st: st, now: s.now},
		Issues:      &issueRepo{st: st, now: s.now},
		Stages:      &stageRepo{st: st},
		Completions: &completionSource{st: st},
	}
}

// AddCompletion registra una etapa terminada (dato externo de producción).
func (s *Store) AddCompletion(c entity.StageCompletion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.completions = append(s.st.completions, c)
}

// Dump copia estable del estado persistido, para comparar antes/después.
type Dump struct {
	Items     []entity.Item
	Lots      []entity.Lot
	Movements []entity.StockMovement
	Issues    []entity.StockIssue
	Mappings  []entity.StageMapping
}

// Dump devuelve el estado confirmado ordenado por ID.
func (s *Store) Dump() Dump {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st.clone()
	var d Dump
	for _, id := range sortedKeys(st.items) {
		d.Items = append(d.Items, *st.items[id])
	}
	for _, id := range sortedKeys(st.lots) {
		d.Lots = append(d.Lots, *st.lots[id])
	}
	for _, id := range sortedKeys(st.movements) {
		d.Movements = append(d.Movements, *st.movements[id])
	}
	for _, id := range sortedKeys(st.issues) {
		d.Issues = append(d.Issues, *st.issues[id])
	}
	for _, id := range sortedKeys(st.mappings) {
		d.Mappings = append(d.Mappings, *st.mappings[id])
	}
	return d
}

func sortedKeys[T any](m map[int64]T) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
