package services

import (
	"context"
	"sort"
	"sync"

	"feedback-webapp/internal/models"
	"feedback-webapp/internal/repositories"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	createErr error
	findErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[user.Username]; ok {
		return repositories.ErrDuplicateKey
	}
	cp := *user
	r.users[user.Username] = &cp
	return nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return 0, repositories.ErrNotFound
	}
	delete(r.users, username)
	return 0, nil
}

type fakeFeedbackRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Feedback
	owners map[string]bool // nil means every owner exists
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{rows: map[int64]models.Feedback{}}
}

func (r *fakeFeedbackRepo) CreateFeedback(_ context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners != nil && !r.owners[fb.Username] {
		return repositories.ErrForeignKey
	}
	r.nextID++
	fb.ID = r.nextID
	r.rows[fb.ID] = *fb
	return nil
}

func (r *fakeFeedbackRepo) FindByID(_ context.Context, id int64) (*models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fb, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &fb, nil
}

func (r *fakeFeedbackRepo) ListByUsername(_ context.Context, username string) ([]models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []models.Feedback{}
	for _, fb := range r.rows {
		if fb.Username == username {
			items = append(items, fb)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *fakeFeedbackRepo) UpdateFeedback(_ context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[fb.ID]
	if !ok || cur.Username != fb.Username {
		return repositories.ErrNotFound
	}
	cur.Title, cur.Content = fb.Title, fb.Content
	r.rows[fb.ID] = cur
	return nil
}

func (r *fakeFeedbackRepo) DeleteFeedback(_ context.Context, id int64, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[id]
	if !ok || cur.Username != owner {
		return repositories.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
