package service

import (
	"context"

	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/repository"
)

// TagService provides helpers around tags.
type TagService struct {
	repo *repository.TagRepository
}

func NewTagService(repo *repository.TagRepository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) List(ctx context.Context, user *model.User) ([]model.Tag, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *TagService) GetOrCreate(ctx context.Context, user *model.User, name string) (*model.Tag, error) {
	return s.repo.GetOrCreate(ctx, user.ID, name)
}
