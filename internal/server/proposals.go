package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
)

const defaultListLimit = 50

// Proposal is the sample resource served behind the pipeline.
type Proposal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Budget    *float64  `json:"budget,omitempty"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

type proposalStore struct {
	mu    sync.RWMutex
	items map[string]Proposal
	now   func() time.Time
	newID func() string
}

func newProposalStore() *proposalStore {
	return &proposalStore{
		items: make(map[string]Proposal),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *proposalStore) add(name string, budget *float64, owner string) Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Proposal{ID: s.newID(), Name: name, Budget: budget, Owner: owner, CreatedAt: s.now().UTC()}
	s.items[p.ID] = p
	return p
}

// list returns up to limit proposals, newest first.
func (s *proposalStore) list(limit int) []Proposal {
	s.mu.RLock()
	out := make([]Proposal, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *proposalStore) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

type listQuery struct {
	Limit int `json:"limit"`
}

type createBody struct {
	Name   string   `json:"name" validate:"required,notblank"`
	Budget *float64 `json:"budget" validate:"omitempty,gte=0"`
}

type proposalList struct {
	Proposals []Proposal `json:"proposals"`
	Count     int        `json:"count"`
}

type proposalHandlers struct {
	store *proposalStore
}

func (h *proposalHandlers) list(_ context.Context, req *route.TypedRequest[listQuery, route.None]) (*route.Response, error) {
	limit := req.Params.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	items := h.store.list(limit)
	return route.JSON(http.StatusOK, proposalList{Proposals: items, Count: len(items)})
}

// legacyList keeps the v0 shape: a bare array.
func (h *proposalHandlers) legacyList(context.Context, *route.Request) (*route.Response, error) {
	return route.JSON(http.StatusOK, h.store.list(defaultListLimit))
}

func (h *proposalHandlers) create(_ context.Context, req *route.TypedRequest[route.None, createBody]) (*route.Response, error) {
	p := h.store.add(req.Payload.Name, req.Payload.Budget, req.Caller.ID)
	resp, err := route.JSON(http.StatusCreated, p)
	if err != nil {
		return nil, err
	}
	resp.Header.Set("Location", "/api/proposals/"+p.ID)
	resp.Header.Set(domain.HeaderCacheControl, "no-store")
	return resp, nil
}

func (h *proposalHandlers) remove(_ context.Context, req *route.Request) (*route.Response, error) {
	if !h.store.remove(chi.URLParam(req.HTTP, "id")) {
		return nil, domain.NotFound("Proposal not found")
	}
	return route.NoContent(), nil
}
