package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escolinha/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "redis: connection refused"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["code"] != "internal_error" {
			t.Fatalf("expected code internal_error, got %q", body["code"])
		}
		if body["error"] == "redis: connection refused" {
			t.Fatalf("expected internal message to be withheld")
		}
	})

	t.Run("conflict includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeConflict, "rematrícula já respondida"))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "rematrícula já respondida" {
			t.Fatalf("expected message to be returned, got %q", body["error"])
		}
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type sampleRequest struct {
	Nome  string `json:"nome" validate:"required"`
	Idade int    `json:"idade" validate:"gte=0"`

	validated bool
}

func (r *sampleRequest) Normalize() {
	r.Nome = string(bytes.TrimSpace([]byte(r.Nome)))
}

func (r *sampleRequest) Validate() error {
	if r.Nome == "proibido" {
		return dErrors.New(dErrors.CodeValidation, "nome proibido")
	}
	r.validated = true
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		out, _ := DecodeAndPrepare[sampleRequest](w, req, logger, req.Context(), "req-1")
		return out, w
	}

	t.Run("malformed json is a bad request", func(t *testing.T) {
		out, w := decode("{")
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing required field reports json name", func(t *testing.T) {
		out, w := decode(`{"nome":"   "}`)
		assert.Nil(t, out)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "nome é obrigatório", body.Error)
	})

	t.Run("custom validation runs after tags", func(t *testing.T) {
		out, w := decode(`{"nome":"proibido"}`)
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("valid body is returned prepared", func(t *testing.T) {
		out, _ := decode(`{"nome":"  Ana  ","idade":9}`)
		require.NotNil(t, out)
		assert.Equal(t, "Ana", out.Nome)
		assert.True(t, out.validated)
	})
}
