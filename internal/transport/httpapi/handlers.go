package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotbook/internal/auth"
	"slotbook/internal/domain"
	"slotbook/internal/export"
	"slotbook/internal/service/bookings"
)

const adminKeyHeader = "X-Admin-Key"

func credential(c *gin.Context) auth.Credential {
	cred := auth.Credential{Key: strings.TrimSpace(c.GetHeader(adminKeyHeader))}
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		cred.Session = cookie
	}
	return cred
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ready(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) availability(c *gin.Context) {
	av, err := h.svc.Availability(c.Request.Context(), c.Query("date"), credential(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

func (h *Handler) slots(c *gin.Context) {
	date := c.Query("date")
	duration, err := optionalInt(c.Query("durationMin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "durationMin must be a number"})
		return
	}

	free, err := h.svc.FreeSlots(c.Request.Context(), date, duration)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        date,
		"durationMin": domain.ClampDuration(duration),
		"slots":       free,
	})
}

type bookRequest struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Action       string `json:"action"`
	DurationMin  minutes `json:"durationMin"`
	ServiceTitle string  `json:"serviceTitle"`
	Price        string  `json:"price"`
}

// minutes accepts any JSON number or numeric string. Fractions are truncated; out-of-range values are
// pinned to the accepted bounds so large inputs cannot overflow int.
type minutes int

func (m *minutes) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*m = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("durationMin: %q is not a number", raw)
	}
	switch {
	case f == 0:
		*m = 0
	case f > domain.MaxDuration:
		*m = domain.MaxDuration
	case f < domain.MinDuration:
		*m = domain.MinDuration
	default:
		*m = minutes(math.Trunc(f))
	}
	return nil
}

func (h *Handler) book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	kind, err := domain.ParseActionKind(req.Action)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// Cancels go through /api/admin-cancel.
	if kind == domain.ActionCancel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use /api/admin-cancel"})
		return
	}

	err = h.svc.Mutate(c.Request.Context(), strings.TrimSpace(req.Date), domain.Action{
		Kind:         kind,
		Time:         req.Time,
		DurationMin:  int(req.DurationMin),
		Name:         req.Name,
		Phone:        req.Phone,
		ServiceTitle: req.ServiceTitle,
		Price:        req.Price,
	}, credential(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type cancelRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *Handler) adminCancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date & time required"})
		return
	}

	err := h.svc.Mutate(c.Request.Context(), strings.TrimSpace(req.Date), domain.Action{
		Kind: domain.ActionCancel,
		Time: req.Time,
	}, credential(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) adminList(c *gin.Context) {
	rows, err := h.svc.ListRange(c.Request.Context(), c.Query("start"), c.Query("end"), credential(c), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handler) adminExport(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	rows, err := h.svc.ListRange(c.Request.Context(), start, end, credential(c), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(start, end)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) createSession(c *gin.Context) {
	if h.sessions == nil || !h.basic.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "admin sessions disabled"})
		return
	}

	user, pass, ok := c.Request.BasicAuth()
	if !ok || !h.basic.Check(user, pass) {
		c.Header("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expires, err := h.sessions.Issue(user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.sessions.TTL() / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.Info("admin session issued", zap.String("user", user))
	c.JSON(http.StatusOK, gin.H{"ok": true, "expiresAt": expires.UTC()})
}

func (h *Handler) deleteSession(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// writeError maps service errors onto status codes. Unexpected errors are logged and hidden.
func (h *Handler) writeError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, domain.ErrOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrOutOfRange.Error()})
	case errors.Is(err, bookings.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
