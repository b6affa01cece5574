// Package memory provides an in-process store.Store used for development and tests.
// It mirrors the ordering and cascade rules of the Postgres schema.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure Store implements store.Store
var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMessageHook registers fn to observe every inserted message, in insertion order.
// fn runs under the store lock and must not block or call back into the store.
func WithMessageHook(fn func(models.Message)) Option {
	return func(s *Store) { s.onMessage = fn }
}

// WithPriceHook registers fn to observe every recorded price, in insertion order.
// The same restrictions as WithMessageHook apply.
func WithPriceHook(fn func(models.PriceHistory)) Option {
	return func(s *Store) { s.onPrice = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu   sync.RWMutex
	now  func() time.Time
	last time.Time

	users         map[uuid.UUID]models.User
	conversations map[uuid.UUID]models.Conversation
	messages      map[uuid.UUID][]models.Message // keyed by conversation
	boards        map[uuid.UUID]models.Board
	products      map[uuid.UUID]models.Product // Links are kept in links
	links         map[uuid.UUID]models.ProductLink
	prices        map[uuid.UUID][]models.PriceHistory // keyed by product link
	alerts        map[uuid.UUID]models.AlertPreferences

	onMessage func(models.Message)
	onPrice   func(models.PriceHistory)
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		users:         make(map[uuid.UUID]models.User),
		conversations: make(map[uuid.UUID]models.Conversation),
		messages:      make(map[uuid.UUID][]models.Message),
		boards:        make(map[uuid.UUID]models.Board),
		products:      make(map[uuid.UUID]models.Product),
		links:         make(map[uuid.UUID]models.ProductLink),
		prices:        make(map[uuid.UUID][]models.PriceHistory),
		alerts:        make(map[uuid.UUID]models.AlertPreferences),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tick returns a strictly increasing timestamp so that rows inserted back to back keep their order.
// Callers must hold the write lock.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// --- Users ---

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("duplicate email %s", user.Email)
		}
	}
	user.ID = newID(user.ID)
	now := s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

// --- Conversations ---

func (s *Store) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	c := models.Conversation{
		ID:        newID(arg.ID),
		UserID:    arg.UserID,
		Title:     arg.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	return &c, nil
}

func (s *Store) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) UpdateConversation(ctx context.Context, arg store.UpdateConversationParams) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[arg.ID]
	if !ok || c.UserID != arg.UserID {
		return nil, store.ErrNotFound
	}
	if arg.Title != nil {
		c.Title = *arg.Title
	}
	if arg.UpdatedAt != nil {
		c.UpdatedAt = arg.UpdatedAt.UTC()
	}
	s.conversations[c.ID] = c
	return &c, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

// --- Messages ---

func (s *Store) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[arg.ConversationID]; !ok {
		return nil, fmt.Errorf("conversation %s does not exist: %w", arg.ConversationID, store.ErrNotFound)
	}
	metadata := make(map[string]any, len(arg.Metadata))
	maps.Copy(metadata, arg.Metadata)
	m := models.Message{
		ID:             newID(arg.ID),
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
		Metadata:       metadata,
		CreatedAt:      s.tick(),
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	if s.onMessage != nil {
		s.onMessage(m)
	}
	return &m, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.ID == id {
				return &m, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out, nil
}

// --- Boards ---

func (s *Store) CreateBoard(ctx context.Context, arg store.CreateBoardParams) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	b := models.Board{
		ID:        newID(arg.ID),
		UserID:    arg.UserID,
		Name:      arg.Name,
		Note:      arg.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.boards[b.ID] = b
	return &b, nil
}

func (s *Store) GetBoardByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) GetBoardByShareToken(ctx context.Context, token string) (*models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.boards {
		if b.ShareToken != nil && *b.ShareToken == token {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBoards(ctx context.Context, userID uuid.UUID) ([]models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Board, 0)
	for _, b := range s.boards {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateBoard(ctx context.Context, arg store.UpdateBoardParams) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[arg.ID]
	if !ok || b.UserID != arg.UserID {
		return nil, store.ErrNotFound
	}
	if arg.Name != nil {
		b.Name = *arg.Name
	}
	if arg.Note != nil {
		b.Note = arg.Note
	}
	if arg.AllowComments != nil {
		b.AllowComments = *arg.AllowComments
	}
	b.UpdatedAt = s.tick()
	s.boards[b.ID] = b
	return &b, nil
}

func (s *Store) SetBoardSharing(ctx context.Context, arg store.SetBoardSharingParams) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[arg.ID]
	if !ok || b.UserID != arg.UserID {
		return nil, store.ErrNotFound
	}
	b.IsPublic = arg.IsPublic
	b.ShareToken = arg.ShareToken
	b.UpdatedAt = s.tick()
	s.boards[b.ID] = b
	return &b, nil
}

func (s *Store) DeleteBoard(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok || b.UserID != userID {
		return store.ErrNotFound
	}
	for pid, p := range s.products {
		if p.BoardID == id {
			s.deleteProductLocked(pid)
		}
	}
	delete(s.boards, id)
	return nil
}

// --- Products ---

// withLinks attaches the product's links ordered by creation. Callers must hold the lock.
func (s *Store) withLinks(p models.Product) models.Product {
	p.Links = make([]models.ProductLink, 0)
	for _, l := range s.links {
		if l.ProductID == p.ID {
			p.Links = append(p.Links, l)
		}
	}
	sort.Slice(p.Links, func(i, j int) bool { return p.Links[i].CreatedAt.Before(p.Links[j].CreatedAt) })
	return p
}

func (s *Store) CreateProduct(ctx context.Context, arg store.CreateProductParams) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[arg.BoardID]; !ok {
		return nil, fmt.Errorf("board %s does not exist: %w", arg.BoardID, store.ErrNotFound)
	}
	currency := arg.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	now := s.tick()
	p := models.Product{
		ID:           newID(arg.ID),
		BoardID:      arg.BoardID,
		UserID:       arg.UserID,
		Name:         arg.Name,
		ImageURL:     arg.ImageURL,
		Note:         arg.Note,
		CurrentPrice: arg.CurrentPrice,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.products[p.ID] = p
	p = s.withLinks(p)
	return &p, nil
}

func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = s.withLinks(p)
	return &p, nil
}

func (s *Store) ListProductsByBoard(ctx context.Context, boardID uuid.UUID) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0)
	for _, p := range s.products {
		if p.BoardID == boardID {
			out = append(out, s.withLinks(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, arg store.UpdateProductParams) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[arg.ID]
	if !ok || p.UserID != arg.UserID {
		return nil, store.ErrNotFound
	}
	if arg.Name != nil {
		p.Name = *arg.Name
	}
	if arg.ImageURL != nil {
		p.ImageURL = arg.ImageURL
	}
	if arg.Note != nil {
		p.Note = arg.Note
	}
	if arg.AINote != nil {
		p.AINote = arg.AINote
	}
	if arg.PriceAlertEnabled != nil {
		p.PriceAlertEnabled = *arg.PriceAlertEnabled
	}
	if arg.TargetPrice != nil {
		p.TargetPrice = arg.TargetPrice
	}
	p.UpdatedAt = s.tick()
	s.products[p.ID] = p
	p = s.withLinks(p)
	return &p, nil
}

func (s *Store) MoveProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID, boardID uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	if _, ok := s.boards[boardID]; !ok {
		return nil, store.ErrNotFound
	}
	p.BoardID = boardID
	p.UpdatedAt = s.tick()
	s.products[p.ID] = p
	p = s.withLinks(p)
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}
	s.deleteProductLocked(id)
	return nil
}

func (s *Store) deleteProductLocked(id uuid.UUID) {
	for lid, l := range s.links {
		if l.ProductID == id {
			delete(s.prices, lid)
			delete(s.links, lid)
		}
	}
	delete(s.products, id)
}

// --- Links and prices ---

func (s *Store) CreateProductLink(ctx context.Context, arg store.CreateProductLinkParams) (*models.ProductLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[arg.ProductID]; !ok {
		return nil, fmt.Errorf("product %s does not exist: %w", arg.ProductID, store.ErrNotFound)
	}
	currency := arg.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	l := models.ProductLink{
		ID:           newID(arg.ID),
		ProductID:    arg.ProductID,
		URL:          arg.URL,
		Retailer:     arg.Retailer,
		CurrentPrice: arg.CurrentPrice,
		Currency:     currency,
		CreatedAt:    s.tick(),
	}
	s.links[l.ID] = l
	return &l, nil
}

func (s *Store) GetProductLinkByID(ctx context.Context, id uuid.UUID) (*models.ProductLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (s *Store) RecordPrice(ctx context.Context, arg store.RecordPriceParams) (*models.PriceHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[arg.ProductLinkID]
	if !ok {
		return nil, store.ErrNotFound
	}
	recordedAt := arg.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.tick()
	}
	currency := arg.Currency
	if currency == "" {
		currency = l.Currency
	}
	h := models.PriceHistory{
		ID:            newID(arg.ID),
		ProductLinkID: l.ID,
		Price:         arg.Price,
		Currency:      currency,
		RecordedAt:    recordedAt.UTC(),
	}
	s.prices[l.ID] = append(s.prices[l.ID], h)

	price := arg.Price
	l.CurrentPrice = &price
	l.LastCheckedAt = &h.RecordedAt
	s.links[l.ID] = l
	if p, ok := s.products[l.ProductID]; ok {
		p.CurrentPrice = &price
		p.UpdatedAt = s.tick()
		s.products[p.ID] = p
	}

	if s.onPrice != nil {
		s.onPrice(h)
	}
	return &h, nil
}

func (s *Store) ListPriceHistory(ctx context.Context, productLinkID uuid.UUID) ([]models.PriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PriceHistory, len(s.prices[productLinkID]))
	copy(out, s.prices[productLinkID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// --- Alert preferences ---

func (s *Store) GetAlertPreferences(ctx context.Context, userID uuid.UUID) (*models.AlertPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) UpsertAlertPreferences(ctx context.Context, arg store.UpsertAlertPreferencesParams) (*models.AlertPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	a, ok := s.alerts[arg.UserID]
	if !ok {
		a = models.AlertPreferences{ID: uuid.New(), UserID: arg.UserID, CreatedAt: now}
	}
	a.EmailEnabled = arg.EmailEnabled
	a.PriceDropThreshold = arg.PriceDropThreshold
	a.SlackWebhookEncrypted = arg.SlackWebhookEncrypted
	a.UpdatedAt = now
	s.alerts[arg.UserID] = a
	return &a, nil
}
