package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/db"
	"github.com/udisondev/attrsys/internal/tag"
	"github.com/udisondev/attrsys/internal/testutil"
)

// AttributeRepositorySuite тестирует float_attributes поверх настоящего PostgreSQL.
type AttributeRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	db   *db.DB
	repo *db.AttributeRepository
}

func TestAttributeRepository(t *testing.T) {
	suite.Run(t, new(AttributeRepositorySuite))
}

// SetupSuite выполняется один раз: контейнер + миграции.
func (s *AttributeRepositorySuite) SetupSuite() {
	s.db = testutil.SetupTestDB(s.T())
	s.repo = db.NewAttributeRepository(s.db.Pool())
}

// SetupTest очищает таблицу перед каждым тестом.
func (s *AttributeRepositorySuite) SetupTest() {
	s.ctx = testutil.ContextWithTimeout(s.T(), 30*time.Second)
	_, err := s.db.Pool().Exec(s.ctx, "TRUNCATE float_attributes")
	s.Require().NoError(err)
}

func health() attribute.FloatAttribute {
	return attribute.FloatAttribute{
		Tag:          tag.New("Attribute.Health"),
		Name:         "Health",
		BaseValue:    100,
		CurrentValue: 73.5,
		Limits: attribute.ValueLimits{
			UseMaxCurrent: true,
			MaxCurrent:    100,
			UseMinCurrent: true,
		},
		CurrentRegenRate:   2,
		IsRegenerating:     true,
		LastRegenTimestamp: 12.5,
	}
}

func mana() attribute.FloatAttribute {
	return attribute.FloatAttribute{
		Tag:       tag.New("Attribute.Mana"),
		BaseValue: 80,
		Limits:    attribute.ValueLimits{UseMaxBase: true, MaxBase: 200},
	}
}

func (s *AttributeRepositorySuite) TestSaveAndLoad() {
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 7, []attribute.FloatAttribute{mana(), health()}))

	got, err := s.repo.LoadFloatAttributes(s.ctx, 7)
	s.Require().NoError(err)
	// сортировка по тегу
	s.Equal([]attribute.FloatAttribute{health(), mana()}, got)
}

func (s *AttributeRepositorySuite) TestSaveReplaces() {
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 7, []attribute.FloatAttribute{health(), mana()}))
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 7, []attribute.FloatAttribute{mana()}))

	got, err := s.repo.LoadFloatAttributes(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal([]attribute.FloatAttribute{mana()}, got)
}

func (s *AttributeRepositorySuite) TestEntitiesIsolated() {
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 1, []attribute.FloatAttribute{health()}))
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 2, []attribute.FloatAttribute{mana()}))
	s.Require().NoError(s.repo.DeleteEntity(s.ctx, 1))

	got, err := s.repo.LoadFloatAttributes(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(got)

	got, err = s.repo.LoadFloatAttributes(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *AttributeRepositorySuite) TestSaveEmpty() {
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 3, []attribute.FloatAttribute{health()}))
	s.Require().NoError(s.repo.SaveFloatAttributes(s.ctx, 3, nil))

	got, err := s.repo.LoadFloatAttributes(s.ctx, 3)
	s.Require().NoError(err)
	s.Empty(got)
}
