package audit

import "time"

// Action names a domain event.
type Action string

const (
	EventTurmaCriada        Action = "turma_criada"
	EventTurmaAtualizada    Action = "turma_atualizada"
	EventTurmaExcluida      Action = "turma_excluida"
	EventTurmasMescladas    Action = "turmas_mescladas"
	EventAlunoMatriculado   Action = "aluno_matriculado"
	EventAlunoMovido        Action = "aluno_movido"
	EventAlunoCopiado       Action = "aluno_copiado"
	EventPresencaRegistrada Action = "presenca_registrada"

	EventRematriculaCriada     Action = "rematricula_criada"
	EventRematriculaRespondida Action = "rematricula_respondida"
	EventRematriculaAplicada   Action = "rematricula_aplicada"
	EventRematriculaRemovida   Action = "rematricula_removida"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     Action            `json:"action"`
	// Subject is the durable id the event is about: a class UUID, a
	// re-enrollment id or a student identifier.
	Subject    string            `json:"subject"`
	Modalidade string            `json:"modalidade,omitempty"`
	Turma      string            `json:"turma,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	ClientIP   string            `json:"clientIp,omitempty"`
}
