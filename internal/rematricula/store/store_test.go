package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"escolinha/internal/rematricula/models"
	"escolinha/internal/storage"
	turmaStore "escolinha/internal/turma/store"
	"escolinha/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New(storage.NewMemory())
	s.ctx = context.Background()
}

func record(id string, ano int, nome string) *models.Rematricula {
	return &models.Rematricula{
		ID:       id,
		Ano:      ano,
		Aluno:    models.AlunoRef{Nome: nome},
		Origem:   models.TurmaRef{Modalidade: "futsal", Turma: "Sub 9"},
		Status:   models.StatusPendente,
		CriadoEm: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *StoreSuite) TestCreateIfAbsent() {
	created, ok, err := s.store.CreateIfAbsent(s.ctx, record("r1", 2026, "Ana"))
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("Ana", created.Aluno.Nome)

	existing, ok, err := s.store.CreateIfAbsent(s.ctx, record("r1", 2026, "Outra"))
	s.Require().NoError(err)
	s.False(ok)
	s.Equal("Ana", existing.Aluno.Nome)

	_, err = s.store.Get(s.ctx, "r2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestList() {
	for _, r := range []*models.Rematricula{record("r2", 2026, "Bruno"), record("r1", 2026, "Ana"), record("r3", 2027, "Caio")} {
		_, _, err := s.store.CreateIfAbsent(s.ctx, r)
		s.Require().NoError(err)
	}

	s.Run("one year", func() {
		out, err := s.store.List(s.ctx, 2026)
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal("r1", out[0].ID)
		s.Equal("r2", out[1].ID)
	})

	s.Run("every year", func() {
		out, err := s.store.List(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(out, 3)
	})
}

func (s *StoreSuite) TestConfig() {
	enabled, err := s.store.Enabled(s.ctx, 2026, "u1")
	s.Require().NoError(err)
	s.True(enabled, "classes are offered until disabled")

	s.Require().NoError(s.store.SetEnabled(s.ctx, 2026, "u1", false))
	enabled, err = s.store.Enabled(s.ctx, 2026, "u1")
	s.Require().NoError(err)
	s.False(enabled)

	flags, err := s.store.EnabledMap(s.ctx, 2026)
	s.Require().NoError(err)
	s.Equal(map[string]bool{"u1": false}, flags)

	other, err := s.store.EnabledMap(s.ctx, 2027)
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *StoreSuite) TestRunClaimsSlots() {
	for _, id := range []string{"r1", "r2"} {
		_, _, err := s.store.CreateIfAbsent(s.ctx, record(id, 2026, id))
		s.Require().NoError(err)
	}
	claim := func(id string, uuids ...string) (bool, error) {
		return s.store.Run(s.ctx, Tx{ID: id, Ano: 2026, ChaveAluno: "chave", Slots: uuids},
			func(_ **models.Rematricula, slots Slots, _ turmaStore.Docs) error {
				return slots.Claim(id)
			})
	}

	ok, err := claim("r1", "u1", "u2")
	s.Require().NoError(err)
	s.True(ok)

	s.Run("same owner claims again", func() {
		ok, err := claim("r1", "u1", "u2")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("other owner loses every slot", func() {
		_, err := claim("r2", "u3", "u2")
		s.ErrorIs(err, ErrLockTaken)
		owner, err := s.store.LockOwner(s.ctx, 2026, "chave", "u3")
		s.Require().NoError(err)
		s.Empty(owner)
	})

	s.Run("release frees the slots and deleting drops the record", func() {
		_, err := s.store.Run(s.ctx, Tx{ID: "r1", Ano: 2026, ChaveAluno: "chave", Slots: []string{"u1", "u2"}},
			func(rec **models.Rematricula, slots Slots, _ turmaStore.Docs) error {
				slots.Release("r1")
				*rec = nil
				return nil
			})
		s.Require().NoError(err)
		owner, err := s.store.LockOwner(s.ctx, 2026, "chave", "u1")
		s.Require().NoError(err)
		s.Empty(owner)
		_, err = s.store.Get(s.ctx, "r1")
		s.ErrorIs(err, sentinel.ErrNotFound)

		ok, err := claim("r2", "u1")
		s.Require().NoError(err)
		s.True(ok)
	})
}

func (s *StoreSuite) TestRunAbortLeavesStateUntouched() {
	_, _, err := s.store.CreateIfAbsent(s.ctx, record("r1", 2026, "Ana"))
	s.Require().NoError(err)

	ok, err := s.store.Run(s.ctx, Tx{ID: "r1", Modalidades: []string{"futsal"}},
		func(rec **models.Rematricula, _ Slots, docs turmaStore.Docs) error {
			(*rec).Status = models.StatusAplicada
			return sentinel.ErrAborted
		})
	s.Require().NoError(err)
	s.False(ok)

	stored, err := s.store.Get(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(models.StatusPendente, stored.Status)
}

func TestSlotsClaimIsAllOrNothing(t *testing.T) {
	slots := Slots{"u1": "", "u2": "r9"}
	assert.ErrorIs(t, slots.Claim("r1"), ErrLockTaken)
	assert.Equal(t, Slots{"u1": "", "u2": "r9"}, slots)

	slots.Release("r9")
	assert.NoError(t, slots.Claim("r1"))
	assert.Equal(t, Slots{"u1": "r1", "u2": "r1"}, slots)
}
