package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ModalidadeStore,AuditPublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"escolinha/internal/attendance"
	"escolinha/internal/audit"
	"escolinha/internal/storage"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/service/mocks"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Store
	auditor *mocks.MockAuditPublisher
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.store = store.New(storage.NewMemory())
	s.service = New(s.store, WithAuditPublisher(s.auditor))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) seed(m *models.Modalidade) {
	s.Require().NoError(s.store.Save(s.ctx, m))
}

func (s *ServiceSuite) turma(modalidade, nome string) *models.Turma {
	t, err := s.service.GetTurma(s.ctx, modalidade, nome)
	s.Require().NoError(err)
	return t
}

func aluno(nome, nascimento, id string) models.Aluno {
	return models.Aluno{
		Nome:                  nome,
		DataNascimento:        nascimento,
		InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: id},
	}
}

func (s *ServiceSuite) TestCreateTurma() {
	s.Run("creates modalidade and assigns uuid", func() {
		t, err := s.service.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "futsal", Nome: "Sub 11", CapacidadeMaxima: 20})
		s.Require().NoError(err)
		s.NotEmpty(t.UUID)
		s.Equal("futsal", t.Modalidade)

		stored := s.turma("futsal", "sub 11")
		s.Equal(t.UUID, stored.UUID)
		s.Equal(0, stored.CapacidadeAtual)
	})

	s.Run("rejects a name that differs only in case and spacing", func() {
		_, err := s.service.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "futsal", Nome: "SUB   11"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestCreateTurmaEmitsAudit() {
	ctrl := gomock.NewController(s.T())
	auditor := mocks.NewMockAuditPublisher(ctrl)
	svc := New(s.store, WithAuditPublisher(auditor))

	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.Equal(audit.EventTurmaCriada, e.Action)
		s.Equal("natacao", e.Modalidade)
		s.NotEmpty(e.Subject)
		return nil
	})

	_, err := svc.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "natacao", Nome: "Manhã"})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestUpdateTurma() {
	s.seed(&models.Modalidade{Nome: "volei", Turmas: []models.Turma{
		{UUID: "u-a", Nome: "A", CapacidadeMaxima: 10, Alunos: []models.Aluno{aluno("Ana", "2015-01-01", "1"), aluno("Bia", "2015-02-02", "2")}},
		{UUID: "u-b", Nome: "B"},
	}})

	s.Run("rename keeps uuid", func() {
		novo := "A1"
		t, err := s.service.UpdateTurma(s.ctx, &models.UpdateTurmaRequest{Modalidade: "volei", Nome: "A", NovoNome: &novo})
		s.Require().NoError(err)
		s.Equal("u-a", t.UUID)
		s.Equal("A1", t.Nome)
	})

	s.Run("rename onto an existing class is a conflict", func() {
		novo := " b "
		_, err := s.service.UpdateTurma(s.ctx, &models.UpdateTurmaRequest{Modalidade: "volei", Nome: "A1", NovoNome: &novo})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("capacity below roster size is rejected", func() {
		capacidade := 1
		_, err := s.service.UpdateTurma(s.ctx, &models.UpdateTurmaRequest{Modalidade: "volei", Nome: "A1", CapacidadeMaxima: &capacidade})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing class is not found", func() {
		_, err := s.service.UpdateTurma(s.ctx, &models.UpdateTurmaRequest{Modalidade: "volei", Nome: "Z"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDeleteTurma() {
	s.seed(&models.Modalidade{Nome: "judo", Turmas: []models.Turma{{UUID: "u-j", Nome: "Faixa branca"}}})

	s.Require().NoError(s.service.DeleteTurma(s.ctx, &models.DeleteTurmaRequest{Modalidade: "judo", Nome: "faixa branca"}))

	_, err := s.service.GetTurma(s.ctx, "judo", "Faixa branca")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	archived := s.turma(models.ModalidadeExcluidos, "Faixa branca")
	s.Equal("u-j", archived.UUID)
	s.Equal("judo", archived.ExcluidaDe)
	s.NotNil(archived.ExcluidaEm)

	s.Require().NoError(s.service.DeleteTurma(s.ctx, &models.DeleteTurmaRequest{Modalidade: models.ModalidadeExcluidos, Nome: "Faixa branca"}))
	_, err = s.service.GetTurma(s.ctx, models.ModalidadeExcluidos, "Faixa branca")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListModalidadesHidesReserved() {
	s.seed(&models.Modalidade{Nome: "futsal", Turmas: []models.Turma{{Nome: "A", Alunos: []models.Aluno{aluno("Ana", "", "1")}}}})
	s.seed(&models.Modalidade{Nome: models.ModalidadeArquivados, Turmas: []models.Turma{{Nome: "Velha"}}})

	visible, err := s.service.ListModalidades(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(ModalidadeResumo{Nome: "futsal", Turmas: 1, Alunos: 1}, visible[0])

	all, err := s.service.ListModalidades(s.ctx, true)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestEnroll() {
	s.seed(&models.Modalidade{Nome: "futsal", Turmas: []models.Turma{
		{UUID: "u-1", Nome: "Sub 9", CapacidadeMaxima: 2, Alunos: []models.Aluno{
			{ID: 1, Nome: "João Araújo", DataNascimento: "2016-04-02"},
		}},
	}})

	s.Run("same identifier is rejected", func() {
		s.seed(&models.Modalidade{Nome: "basquete", Turmas: []models.Turma{
			{Nome: "Mini", Alunos: []models.Aluno{aluno("Pedro", "2014-01-01", "X")}},
		}})
		_, err := s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "basquete", Turma: "Mini", Aluno: aluno("Outro Nome", "2010-01-01", "X")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("aluno já cadastrado nesta turma", dErrors.MessageOf(err))
	})

	s.Run("matching name and birth date without identifier is rejected", func() {
		_, err := s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "futsal", Turma: "Sub 9", Aluno: aluno(" joao araujo ", "2016-04-02", "")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("new student gets next id and an identifier", func() {
		a, err := s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "futsal", Turma: "Sub 9", Aluno: aluno("Maria", "2016-01-01", "")})
		s.Require().NoError(err)
		s.Equal(2, a.ID)
		s.NotEmpty(a.UniqueID())

		t := s.turma("futsal", "Sub 9")
		s.Len(t.Alunos, 2)
		s.Equal(2, t.CapacidadeAtual)
		s.Equal(2, t.ContadorAlunos)
	})

	s.Run("full class is rejected", func() {
		_, err := s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "futsal", Turma: "Sub 9", Aluno: aluno("Lia", "2016-05-05", "")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("turma lotada", dErrors.MessageOf(err))
	})

	s.Run("unknown modalidade is not found", func() {
		_, err := s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "xadrez", Turma: "A", Aluno: aluno("Lia", "2016-05-05", "")})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestMerge() {
	s.Run("two classes in one modalidade become one", func() {
		_, err := s.service.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "futebol", Nome: "A", CapacidadeMaxima: 25})
		s.Require().NoError(err)
		_, err = s.service.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "futebol", Nome: "B", CapacidadeMaxima: 18})
		s.Require().NoError(err)
		_, err = s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "futebol", Turma: "B", Aluno: aluno("Caio", "2015-01-01", "X")})
		s.Require().NoError(err)
		_, err = s.service.Enroll(s.ctx, &models.EnrollRequest{Modalidade: "futebol", Turma: "B", Aluno: aluno("Davi", "2015-06-01", "")})
		s.Require().NoError(err)

		c, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "futebol", Turma: "A"},
			TurmaB:  models.Origem{Modalidade: "futebol", Turma: "B"},
			Destino: models.MergeDestino{Modalidade: "futebol", Nome: "C"},
		})
		s.Require().NoError(err)
		s.Len(c.Alunos, 2)
		s.Equal(2, c.CapacidadeAtual)
		s.Equal(25, c.CapacidadeMaxima)
		s.Len(c.MescladaDe, 2)

		turmas, err := s.service.ListTurmas(s.ctx, "futebol")
		s.Require().NoError(err)
		s.Require().Len(turmas, 1)
		s.Equal("C", turmas[0].Nome)
		s.Equal(2, turmas[0].CapacidadeAtual)
	})

	s.Run("overlapping students collapse and attendance is unioned", func() {
		s.seed(&models.Modalidade{Nome: "natacao", Turmas: []models.Turma{
			{Nome: "Manhã", Alunos: []models.Aluno{
				{Nome: "Ana", Telefone: "111", InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: "ana"},
					Presencas: attendance.Presencas{"março": {"3-3-2025": true, "4-3-2025": false}}},
				aluno("Rui", "2012-01-01", ""),
			}},
		}})
		s.seed(&models.Modalidade{Nome: "hidro", Turmas: []models.Turma{
			{Nome: "Tarde", Alunos: []models.Aluno{
				{Nome: "Ana Souza", Telefone: "222", InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: "ana"},
					Presencas: attendance.Presencas{"março": {"4-3-2025": true, "5-3-2025": false}}},
			}},
		}})
		s.seed(&models.Modalidade{Nome: "aquaticos"})

		c, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "natacao", Turma: "manhã"},
			TurmaB:  models.Origem{Modalidade: "hidro", Turma: "TARDE"},
			Destino: models.MergeDestino{Modalidade: "aquaticos", Nome: "Misto", CapacidadeMaxima: 30},
		})
		s.Require().NoError(err)
		s.Require().Len(c.Alunos, 2)
		s.LessOrEqual(len(c.Alunos), 3)

		ana := c.Alunos[0]
		s.Equal(1, ana.ID)
		s.Equal("Ana Souza", ana.Nome)
		s.Equal("222", ana.Telefone)
		s.Equal(map[string]bool{"3-3-2025": true, "4-3-2025": true, "5-3-2025": false}, ana.Presencas["março"])
		s.Equal(2, c.Alunos[1].ID)

		stored := s.turma("aquaticos", "Misto")
		s.Equal(c.UUID, stored.UUID)
		_, err = s.service.GetTurma(s.ctx, "natacao", "Manhã")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("same class twice is a validation error", func() {
		_, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "futebol", Turma: "C"},
			TurmaB:  models.Origem{Modalidade: "futebol", Turma: " c"},
			Destino: models.MergeDestino{Modalidade: "futebol", Nome: "D"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("destination name collision leaves sources intact", func() {
		s.seed(&models.Modalidade{Nome: "tenis", Turmas: []models.Turma{{Nome: "X"}, {Nome: "Y"}, {Nome: "Z"}}})
		_, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "tenis", Turma: "X"},
			TurmaB:  models.Origem{Modalidade: "tenis", Turma: "Y"},
			Destino: models.MergeDestino{Modalidade: "tenis", Nome: "z"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		turmas, err := s.service.ListTurmas(s.ctx, "tenis")
		s.Require().NoError(err)
		s.Len(turmas, 3)
	})

	s.Run("missing destination modalidade is not found", func() {
		_, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "tenis", Turma: "X"},
			TurmaB:  models.Origem{Modalidade: "tenis", Turma: "Y"},
			Destino: models.MergeDestino{Modalidade: "padel", Nome: "XY"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		turmas, err := s.service.ListTurmas(s.ctx, "tenis")
		s.Require().NoError(err)
		s.Len(turmas, 3)
		_, err = s.service.ListTurmas(s.ctx, "padel")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing source class is not found", func() {
		_, err := s.service.Merge(s.ctx, &models.MergeRequest{
			TurmaA:  models.Origem{Modalidade: "tenis", Turma: "X"},
			TurmaB:  models.Origem{Modalidade: "tenis", Turma: "W"},
			Destino: models.MergeDestino{Modalidade: "tenis", Nome: "XW"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestMergeRostersBound() {
	a := []models.Aluno{aluno("Ana", "2010-01-01", ""), aluno("Bia", "2010-01-01", "b")}
	b := []models.Aluno{aluno("ana", "2010-01-01", ""), aluno("Caio", "2010-01-01", "c")}

	merged, err := MergeRosters(a, b)
	s.Require().NoError(err)
	s.Len(merged, 3)
	s.LessOrEqual(len(merged), len(a)+len(b))

	disjoint, err := MergeRosters(a, []models.Aluno{aluno("Davi", "2011-01-01", "")})
	s.Require().NoError(err)
	s.Len(disjoint, len(a)+1)
}

func (s *ServiceSuite) TestMoveAndCopy() {
	s.seed(&models.Modalidade{Nome: "futsal", Turmas: []models.Turma{
		{Nome: "Origem", Alunos: []models.Aluno{
			{ID: 1, Nome: "Ana", DataNascimento: "2015-01-01"},
			{ID: 2, Nome: "Bia", InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: "bia"}},
			{ID: 3, Nome: "Caio", InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: "caio"}},
		}},
		{Nome: "Destino", Alunos: []models.Aluno{
			{ID: 4, Nome: "Caio Silva", InformacoesAdicionais: models.InformacoesAdicionais{IdentificadorUnico: "caio"}},
		}},
	}})

	s.Run("copy leaves the origin untouched", func() {
		res, err := s.service.Copy(s.ctx, &models.TransferRequest{
			Origem:  models.Origem{Modalidade: "futsal", Turma: "Origem"},
			Destino: models.Origem{Modalidade: "futsal", Turma: "Destino"},
			Alunos:  []string{"Bia"},
		})
		s.Require().NoError(err)
		s.Equal(TransferResult{Processed: 1}, *res)
		s.Len(s.turma("futsal", "Origem").Alunos, 3)

		destino := s.turma("futsal", "Destino")
		s.Equal(2, destino.CapacidadeAtual)
		s.Equal(5, destino.Alunos[1].ID)
	})

	s.Run("move skips duplicates and unknown names", func() {
		res, err := s.service.Move(s.ctx, &models.TransferRequest{
			Origem:  models.Origem{Modalidade: "futsal", Turma: "Origem"},
			Destino: models.Origem{Modalidade: "futsal", Turma: "Destino"},
			Alunos:  []string{"Ana", "Bia", "Caio", "Ninguém"},
		})
		s.Require().NoError(err)
		s.Equal(TransferResult{Processed: 1, Skipped: 3}, *res)

		origem := s.turma("futsal", "Origem")
		s.Len(origem.Alunos, 2)
		s.Equal(2, origem.CapacidadeAtual)

		destino := s.turma("futsal", "Destino")
		s.Equal(3, destino.CapacidadeAtual)
		moved := destino.Alunos[2]
		s.Equal("Ana", moved.Nome)
		s.Equal(6, moved.ID)
		s.NotEmpty(moved.UniqueID())
	})

	s.Run("moved student keeps its identifier", func() {
		s.seed(&models.Modalidade{Nome: "judo", Turmas: []models.Turma{
			{Nome: "A", Alunos: []models.Aluno{aluno("Rui", "", "rui-1")}},
			{Nome: "B"},
		}})
		_, err := s.service.Move(s.ctx, &models.TransferRequest{
			Origem:  models.Origem{Modalidade: "judo", Turma: "A"},
			Destino: models.Origem{Modalidade: "judo", Turma: "B"},
			Alunos:  []string{"Rui"},
		})
		s.Require().NoError(err)
		s.Equal("rui-1", s.turma("judo", "B").Alunos[0].UniqueID())
	})

	s.Run("missing destination is not found", func() {
		_, err := s.service.Move(s.ctx, &models.TransferRequest{
			Origem:  models.Origem{Modalidade: "futsal", Turma: "Origem"},
			Destino: models.Origem{Modalidade: "futsal", Turma: "Nenhuma"},
			Alunos:  []string{"Bia"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestStoreConflictsAreRetryable() {
	ctrl := gomock.NewController(s.T())
	st := mocks.NewMockModalidadeStore(ctrl)
	svc := New(st)
	st.EXPECT().Mutate(gomock.Any(), []string{"futsal"}, gomock.Any()).Return(sentinel.ErrConflict)

	_, err := svc.CreateTurma(s.ctx, &models.CreateTurmaRequest{Modalidade: "futsal", Nome: "A"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	st.EXPECT().Get(gomock.Any(), "futsal").Return(nil, errors.New("redis: connection refused"))
	_, err = svc.GetTurma(s.ctx, "futsal", "A")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
