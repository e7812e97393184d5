package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"escolinha/internal/storage"
	"escolinha/internal/turma/handler/mocks"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/service"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/httputil"
)

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = newRouter(s.service)
}

func newRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func (s *HandlerSuite) do(router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decodeError(rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func (s *HandlerSuite) TestCreateClass() {
	s.Run("created class is returned", func() {
		s.service.EXPECT().CreateTurma(gomock.Any(), &models.CreateTurmaRequest{Modalidade: "futsal", Nome: "Sub 11", CapacidadeMaxima: 20}).
			Return(&models.Turma{UUID: "u-1", Modalidade: "futsal", Nome: "Sub 11", CapacidadeMaxima: 20}, nil)

		rec := s.do(s.router, http.MethodPost, "/classes", map[string]any{
			"modalidade": " futsal ", "nome_da_turma": "Sub 11", "capacidade_maxima_da_turma": 20,
		})
		s.Equal(http.StatusCreated, rec.Code)

		var body map[string]any
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("u-1", body["uuidTurma"])
	})

	s.Run("missing name never reaches the service", func() {
		rec := s.do(s.router, http.MethodPost, "/classes", map[string]any{"modalidade": "futsal"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("name conflict maps to 409", func() {
		s.service.EXPECT().CreateTurma(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "já existe uma turma com esse nome nesta modalidade"))

		rec := s.do(s.router, http.MethodPost, "/classes", map[string]any{"modalidade": "futsal", "nome_da_turma": "A"})
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("conflict", s.decodeError(rec).Code)
	})
}

func (s *HandlerSuite) TestGetClasses() {
	s.Run("single class by modalidade and name", func() {
		s.service.EXPECT().GetTurma(gomock.Any(), "futsal", "Sub 9").Return(&models.Turma{Nome: "Sub 9"}, nil)
		rec := s.do(s.router, http.MethodGet, "/classes?modalidade=futsal&nome_da_turma=Sub+9", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("listing", func() {
		s.service.EXPECT().ListTurmas(gomock.Any(), "").Return([]models.Turma{{Nome: "A"}, {Nome: "B"}}, nil)
		rec := s.do(s.router, http.MethodGet, "/classes", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Turmas []models.Turma `json:"turmas"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Len(body.Turmas, 2)
	})

	s.Run("name without modalidade is rejected", func() {
		rec := s.do(s.router, http.MethodGet, "/classes?nome_da_turma=A", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown modalidade is 404", func() {
		s.service.EXPECT().ListTurmas(gomock.Any(), "xadrez").Return(nil, dErrors.New(dErrors.CodeNotFound, "modalidade não encontrada"))
		rec := s.do(s.router, http.MethodGet, "/classes?modalidade=xadrez", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal("modalidade não encontrada", s.decodeError(rec).Error)
	})
}

func (s *HandlerSuite) TestMergeValidation() {
	rec := s.do(s.router, http.MethodPost, "/mergeClasses", map[string]any{
		"turmaA":  map[string]string{"modalidade": "futsal", "turma": "A"},
		"turmaB":  map[string]string{"modalidade": "futsal", "turma": "a "},
		"destino": map[string]any{"modalidade": "futsal", "nome_da_turma": "C"},
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("selecione duas turmas diferentes", s.decodeError(rec).Error)
}

func (s *HandlerSuite) TestTransferCounts() {
	req := map[string]any{
		"origem":  map[string]string{"modalidade": "futsal", "turma": "A"},
		"destino": map[string]string{"modalidade": "futsal", "turma": "B"},
		"alunos":  []string{"Ana", " ", "Bia"},
	}

	s.Run("move", func() {
		s.service.EXPECT().Move(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r *models.TransferRequest) (*service.TransferResult, error) {
				s.Equal([]string{"Ana", "Bia"}, r.Alunos)
				return &service.TransferResult{Processed: 1, Skipped: 1}, nil
			})
		rec := s.do(s.router, http.MethodPost, "/moveStudent", req)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"moved":1,"skipped":1}`, rec.Body.String())
	})

	s.Run("copy", func() {
		s.service.EXPECT().Copy(gomock.Any(), gomock.Any()).Return(&service.TransferResult{Processed: 2}, nil)
		rec := s.do(s.router, http.MethodPost, "/copyStudent", req)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"copied":2,"skipped":0}`, rec.Body.String())
	})

	s.Run("same origin and destination", func() {
		rec := s.do(s.router, http.MethodPost, "/moveStudent", map[string]any{
			"origem":  map[string]string{"modalidade": "futsal", "turma": "A"},
			"destino": map[string]string{"modalidade": "futsal", "turma": "A"},
			"alunos":  []string{"Ana"},
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestInternalErrorsAreMasked() {
	s.service.EXPECT().ListModalidades(gomock.Any(), false).Return(nil, dErrors.New(dErrors.CodeInternal, "redis: i/o timeout"))
	rec := s.do(s.router, http.MethodGet, "/modalidades", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("erro interno", s.decodeError(rec).Error)
}

// TestMergeOverHTTP runs the full create, enroll and merge flow against the
// in-memory store.
func (s *HandlerSuite) TestMergeOverHTTP() {
	svc := service.New(store.New(storage.NewMemory()))
	router := newRouter(svc)

	for _, c := range []map[string]any{
		{"modalidade": "futebol", "nome_da_turma": "A", "capacidade_maxima_da_turma": 25},
		{"modalidade": "futebol", "nome_da_turma": "B", "capacidade_maxima_da_turma": 18},
	} {
		s.Require().Equal(http.StatusCreated, s.do(router, http.MethodPost, "/classes", c).Code)
	}
	for _, a := range []map[string]any{
		{"nome": "Caio", "dataNascimento": "2015-01-01", "informacoesAdicionais": map[string]string{"IdentificadorUnico": "X"}},
		{"nome": "Davi", "dataNascimento": "2015-06-01"},
	} {
		rec := s.do(router, http.MethodPost, "/enrollStudent", map[string]any{"modalidade": "futebol", "turma": "B", "aluno": a})
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(router, http.MethodPost, "/enrollStudent", map[string]any{
		"modalidade": "futebol", "turma": "B",
		"aluno": map[string]any{"nome": "Caio Outro", "informacoesAdicionais": map[string]string{"IdentificadorUnico": "X"}},
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(router, http.MethodPost, "/mergeClasses", map[string]any{
		"turmaA":  map[string]string{"modalidade": "futebol", "turma": "A"},
		"turmaB":  map[string]string{"modalidade": "futebol", "turma": "B"},
		"destino": map[string]any{"modalidade": "futebol", "nome_da_turma": "C"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var merged models.Turma
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&merged))
	s.Len(merged.Alunos, 2)
	s.Equal(2, merged.CapacidadeAtual)

	rec = s.do(router, http.MethodGet, "/classes?modalidade=futebol", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var listing struct {
		Turmas []models.Turma `json:"turmas"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&listing))
	s.Require().Len(listing.Turmas, 1)
	s.Equal("C", listing.Turmas[0].Nome)
}

func (s *HandlerSuite) TestModalidadeNamesMustBeDocumentKeys() {
	bad := "futsal/turmas"
	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"update", http.MethodPut, "/classes", map[string]any{"modalidade": bad, "nome_da_turma": "A"}},
		{"delete", http.MethodDelete, "/classes", map[string]any{"modalidade": bad, "nome_da_turma": "A"}},
		{"enroll", http.MethodPost, "/enrollStudent", map[string]any{
			"modalidade": bad, "turma": "A",
			"aluno": map[string]any{"nome": "Ana", "dataNascimento": "2015-01-01"},
		}},
		{"merge source", http.MethodPost, "/mergeClasses", map[string]any{
			"turmaA":  map[string]string{"modalidade": bad, "turma": "A"},
			"turmaB":  map[string]string{"modalidade": "futsal", "turma": "B"},
			"destino": map[string]any{"modalidade": "futsal", "nome_da_turma": "C"},
		}},
		{"move", http.MethodPost, "/moveStudent", map[string]any{
			"origem":  map[string]string{"modalidade": "futsal", "turma": "A"},
			"destino": map[string]string{"modalidade": bad, "turma": "B"},
			"alunos":  []string{"Ana"},
		}},
		{"copy", http.MethodPost, "/copyStudent", map[string]any{
			"origem":  map[string]string{"modalidade": bad, "turma": "A"},
			"destino": map[string]string{"modalidade": "futsal", "turma": "B"},
			"alunos":  []string{"Ana"},
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.do(s.router, tc.method, tc.path, tc.body)
			s.Require().Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
			s.Equal(string(dErrors.CodeValidation), s.decodeError(rec).Code)
		})
	}
}
