package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/session"
	"github.com/simoncinid/hostgpt-sub000/internal/suspend"
)

// registerRoutes sets up all bridge routes on the Gin router.
func registerRoutes(router *gin.Engine, b *bridge) {
	router.GET("/api/state", b.handleState)
	router.GET("/api/info", b.handleInfo)
	router.GET("/api/messages", b.handleMessages)

	router.POST("/api/identify", b.handleIdentify)
	router.POST("/api/messages", b.handleSend)
	router.POST("/api/conversations/new", b.handleNewConversation)
	router.POST("/api/voice/start", b.handleVoiceStart)
	router.POST("/api/voice/stop", b.handleVoiceStop)
	router.POST("/api/checkin", b.handleCheckin)

	router.GET("/api/events", b.handleSSE)
	router.GET("/api/ws", b.handleWS)
}

// stateSnapshot is the full widget state in one response, served on load so
// the frontend renders without racing the event stream.
type stateSnapshot struct {
	State          session.State `json:"state"`
	GateVisible    bool          `json:"gate_visible"`
	Guest          session.Guest `json:"guest"`
	ConversationID string        `json:"conversation_id,omitempty"`
	ThreadID       string        `json:"thread_id,omitempty"`
	Suspension     suspend.State `json:"suspension"`
	Messages       []api.Message `json:"messages"`
	Info           *api.ChatInfo `json:"info,omitempty"`
}

func (b *bridge) snapshot() stateSnapshot {
	return stateSnapshot{
		State:          b.engine.State(),
		GateVisible:    b.engine.GateVisible(),
		Guest:          b.engine.Guest(),
		ConversationID: b.engine.ConversationID(),
		ThreadID:       b.engine.ThreadID(),
		Suspension:     b.engine.Suspension(),
		Messages:       b.engine.Messages(),
		Info:           b.engine.Info(),
	}
}

func (b *bridge) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, b.snapshot())
}

func (b *bridge) handleInfo(c *gin.Context) {
	info := b.engine.Info()
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chatbot info not loaded yet"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (b *bridge) handleMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": b.engine.Messages()})
}

func (b *bridge) handleIdentify(c *gin.Context) {
	var ident session.Identity
	if err := c.ShouldBindJSON(&ident); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := b.engine.SubmitIdentity(c.Request.Context(), ident); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.snapshot())
}

func (b *bridge) handleSend(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	reply, err := b.engine.Send(c.Request.Context(), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "thread_id": b.engine.ThreadID()})
}

func (b *bridge) handleNewConversation(c *gin.Context) {
	if err := b.engine.StartNewConversation(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.snapshot())
}

func (b *bridge) handleVoiceStart(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capture != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a recording is already in progress"})
		return
	}
	capture, err := b.engine.StartVoiceCapture(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	b.capture = capture
	c.JSON(http.StatusOK, gin.H{"recording": true})
}

func (b *bridge) handleVoiceStop(c *gin.Context) {
	b.mu.Lock()
	capture := b.capture
	b.capture = nil
	b.mu.Unlock()
	if capture == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no recording in progress"})
		return
	}
	reply, err := b.engine.SendVoice(c.Request.Context(), capture)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "thread_id": b.engine.ThreadID()})
}

func (b *bridge) handleCheckin(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	var files []api.CheckinFile
	for _, fh := range form.File["documents"] {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload: " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload: " + fh.Filename})
			return
		}
		files = append(files, api.CheckinFile{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	if err := b.engine.SubmitCheckin(c.Request.Context(), files); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": len(files)})
}
