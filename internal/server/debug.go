package server

import (
	"encoding/json"
	"net/http"

	"raid-server/internal/engine"
	"raid-server/pkg/logger"
)

// DebugHandler предоставляет доступ к внутреннему состоянию движка
type DebugHandler struct {
	Service *engine.GameService
}

func NewDebugHandler(s *engine.GameService) *DebugHandler {
	return &DebugHandler{Service: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/sessions", h.handleListSessions)
	mux.HandleFunc("/debug/players", h.handlePlayers)
	mux.HandleFunc("/debug/mechanics", h.handleMechanics)
	mux.HandleFunc("/debug/schedule", h.handleSchedule)
	mux.HandleFunc("/debug/cancel", h.handleCancel)
}

// /debug/sessions - список боев с активной механикой
func (h *DebugHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Service.Sessions())
}

// /debug/players?session=raid-1 - полные данные игроков боя
func (h *DebugHandler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Service.Session(r.URL.Query().Get("session"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sess.Players())
}

// /debug/mechanics?session=raid-1 - снимки всех механик (состояние, фаза, безопасные клетки)
func (h *DebugHandler) handleMechanics(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Service.Session(r.URL.Query().Get("session"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sess.MechanicSnapshots())
}

// /debug/schedule - очередь тиков. Куча, порядок в слайсе не равен порядку извлечения.
func (h *DebugHandler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Service.ScheduleDump())
}

// POST /debug/cancel?session=raid-1 - досрочно снять активную механику
func (h *DebugHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("session")
	if _, ok := h.Service.Session(id); !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	h.Service.CancelActive(id)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника (нужно для локального debug клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Если data == nil (например, пустая очередь), возвращаем пустой массив [], а не null
	if data == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Warn("debug: encode failed")
	}
}
