package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/repo"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type TagService struct {
	repo repo.TagRepository
	pick func(n int) int
}

func NewTagService(repo repo.TagRepository) *TagService {
	return &TagService{repo: repo, pick: rand.IntN}
}

// Create adds a tag; an empty color picks one from model.TagColors.
func (s *TagService) Create(ctx context.Context, name, color string) (model.Tag, error) {
	tag := model.Tag{Name: strings.TrimSpace(name), Color: color}
	if tag.Color == "" {
		tag.Color = model.TagColors[s.pick(len(model.TagColors))]
	}
	if err := s.validate(tag); err != nil {
		return tag, err
	}
	return s.repo.Create(ctx, tag)
}

// Ensure returns the tag called name, creating it when missing.
func (s *TagService) Ensure(ctx context.Context, name string) (model.Tag, error) {
	tag, err := s.repo.GetByName(ctx, name)
	if err == nil || !errors.Is(err, repo.ErrorNotFound) {
		return tag, err
	}

	tag, err = s.Create(ctx, name, "")
	if errors.Is(err, repo.ErrorConflict) {
		// создан параллельно
		return s.repo.GetByName(ctx, name)
	}
	return tag, err
}

func (s *TagService) Get(ctx context.Context, id int64) (model.Tag, error) {
	return s.repo.Get(ctx, id)
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.repo.List(ctx)
}

func (s *TagService) Update(ctx context.Context, id int64, patch model.TagPatch) (model.Tag, error) {
	tag, err := s.repo.Get(ctx, id)
	if err != nil {
		return tag, err
	}
	if patch.Name != nil {
		tag.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Color != nil {
		tag.Color = *patch.Color
	}
	if err := s.validate(tag); err != nil {
		return tag, err
	}
	return s.repo.Update(ctx, tag)
}

func (s *TagService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *TagService) validate(t model.Tag) error {
	if t.Name == "" {
		return fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	if !colorPattern.MatchString(t.Color) {
		return fmt.Errorf("%w: color must look like #rrggbb", ErrValidation)
	}
	return nil
}
