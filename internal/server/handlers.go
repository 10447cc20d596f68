package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chapterqa/internal/domain"
	"chapterqa/internal/quiz"
	"chapterqa/internal/service"
)

const (
	debugChunkChars   = 200
	debugContextChars = 500
)

type submitRequest struct {
	Path    string `json:"path"`
	Refresh bool   `json:"refresh"`
}

type submitResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Identity   string `json:"identity"`
	ChunkCount int    `json:"chunk_count"`
}

type askRequest struct {
	Path     string `json:"path"`
	Question string `json:"question"`
}

type debugChunk struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type askDebug struct {
	Question    string       `json:"question"`
	ContextUsed string       `json:"context_used"`
	TopChunks   []debugChunk `json:"top_chunks"`
}

type askResponse struct {
	Answer string   `json:"answer"`
	Debug  askDebug `json:"debug"`
}

type quizRequest struct {
	Path       string `json:"path"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type quizResponse struct {
	Questions []quiz.Question `json:"questions"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) submitPath(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing path"})
		return
	}
	submit := s.pipeline.SubmitDocument
	if req.Refresh {
		submit = s.pipeline.RefreshDocument
	}
	res, err := submit(c.Request.Context(), req.Path)
	if err != nil {
		s.writeError(c, err)
		return
	}
	msg := "Chunks already cached for this document."
	if res.Status == service.StatusProcessed {
		msg = "Document successfully divided into chunks."
	}
	c.JSON(http.StatusOK, submitResponse{
		Status:     string(res.Status),
		Message:    msg,
		Identity:   string(res.Identity),
		ChunkCount: res.ChunkCount,
	})
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing path or question"})
		return
	}
	ans, err := s.pipeline.Ask(c.Request.Context(), req.Path, req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}
	top := make([]debugChunk, 0, len(ans.Sources))
	for _, sc := range ans.Sources {
		top = append(top, debugChunk{Index: sc.Chunk.Index, Text: truncate(sc.Chunk.Text, debugChunkChars), Score: sc.Score})
	}
	c.JSON(http.StatusOK, askResponse{
		Answer: ans.Text,
		Debug: askDebug{
			Question:    req.Question,
			ContextUsed: truncate(ans.Context, debugContextChars),
			TopChunks:   top,
		},
	})
}

func (s *Server) generateQuiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing path"})
		return
	}
	questions, err := s.pipeline.GenerateQuiz(c.Request.Context(), service.QuizRequest{
		Location:   req.Path,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizResponse{Questions: questions})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusNotFound {
		body["suggestion"] = "Check the container and path of the document; common spelling variants were already tried."
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", c.GetString(requestIDKey), "status", status, "err", err)
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidLocation), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoValidQuestions):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrGenerationUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
