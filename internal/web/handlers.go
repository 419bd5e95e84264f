package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/device"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

type colorBody struct {
	R         int `json:"r"`
	G         int `json:"g"`
	B         int `json:"b"`
	WarmWhite int `json:"warmWhite"`
	CoolWhite int `json:"coolWhite"`
}

type stateBody struct {
	Power      bool      `json:"power"`
	Mode       int       `json:"mode"`
	ModeName   string    `json:"modeName"`
	Brightness int       `json:"brightness"`
	Color      colorBody `json:"color"`
}

type connectionBody struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
	Name      string `json:"name"`
}

type keyframeBody struct {
	Hour       int       `json:"hour"`
	Minute     int       `json:"minute"`
	Color      colorBody `json:"color"`
	Brightness int       `json:"brightness"`
}

type sceneBody struct {
	Mode      int            `json:"mode"`
	ModeName  string         `json:"modeName"`
	Name      string         `json:"name"`
	Keyframes []keyframeBody `json:"keyframes"`
}

func stateResponse(state protocol.DeviceState) stateBody {
	return stateBody{
		Power:      state.Power,
		Mode:       int(state.Mode),
		ModeName:   state.Mode.String(),
		Brightness: state.Brightness,
		Color: colorBody{
			R:         state.Color.R,
			G:         state.Color.G,
			B:         state.Color.B,
			WarmWhite: state.Color.WarmWhite,
			CoolWhite: state.Color.CoolWhite,
		},
	}
}

func sceneResponse(s *scene.Scene) sceneBody {
	return sceneBody{
		Mode:     int(s.Mode()),
		ModeName: s.Mode().String(),
		Name:     s.Name(),
		Keyframes: lo.Map(s.Keyframes(), func(k scene.Keyframe, _ int) keyframeBody {
			return keyframeBody{
				Hour:   k.Hour,
				Minute: k.Minute,
				Color: colorBody{
					R:         k.Color.R,
					G:         k.Color.G,
					B:         k.Color.B,
					WarmWhite: k.Color.WarmWhite,
					CoolWhite: k.Color.CoolWhite,
				},
				Brightness: k.Brightness,
			}
		}),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("Writing response failed", "error", err)
	}
}

// writeError maps the internal error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, protocol.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ble.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, device.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, device.ErrConnection):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, into any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("%w: decoding request body: %s", protocol.ErrValidation, err)
	}
	return nil
}

func parseMode(value int) (protocol.Mode, error) {
	if value < 0 || value > 0xFF {
		return 0, fmt.Errorf("%w: mode out of range: %d", protocol.ErrValidation, value)
	}
	mode := protocol.Mode(value)
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: unknown mode 0x%02X", protocol.ErrValidation, value)
	}
	return mode, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Connected bool       `json:"connected"`
		Address   string     `json:"address"`
		Name      string     `json:"name"`
		State     *stateBody `json:"state,omitempty"`
	}{
		Connected: s.manager.IsConnected(),
		Address:   s.manager.DeviceAddress(),
		Name:      s.manager.DeviceName(),
	}
	if body.Connected {
		if state, err := s.manager.QueryState(r.Context()); err == nil {
			resp := stateResponse(state)
			body.State = &resp
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	devices, err := s.manager.Scan(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	type deviceBody struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		RSSI    int    `json:"rssi"`
	}
	s.writeJSON(w, http.StatusOK, lo.Map(devices, func(d ble.Device, _ int) deviceBody {
		return deviceBody{Address: d.Address, Name: d.Name, RSSI: d.RSSI}
	}))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	name, err := s.manager.Connect(r.Context(), body.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, connectionBody{
		Connected: true,
		Address:   s.manager.DeviceAddress(),
		Name:      name,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Disconnect(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, connectionBody{Connected: false})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var body struct {
		On bool `json:"on"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SetPower(body.On); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	var body colorBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	color, err := protocol.NewColor(body.R, body.G, body.B, body.WarmWhite, body.CoolWhite)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SetColor(color); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Percent int `json:"percent"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SetBrightness(body.Percent); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode int `json:"mode"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	mode, err := parseMode(body.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SetMode(r.Context(), mode); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.SetName(body.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLightning(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Intensity   int   `json:"intensity"`
		Frequency   int   `json:"frequency"`
		StartHour   int   `json:"startHour"`
		StartMinute int   `json:"startMinute"`
		EndHour     int   `json:"endHour"`
		EndMinute   int   `json:"endMinute"`
		Days        []int `json:"days"`
		Enabled     bool  `json:"enabled"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	var days byte
	for _, d := range body.Days {
		if d < 0 || d > 6 {
			s.writeError(w, fmt.Errorf("%w: day must be 0 (Monday) to 6 (Sunday), got %d", protocol.ErrValidation, d))
			return
		}
		days |= 1 << d
	}

	cfg, err := protocol.NewLightningConfig(
		body.Intensity, body.Frequency,
		protocol.TimeOfDay{Hour: body.StartHour, Minute: body.StartMinute},
		protocol.TimeOfDay{Hour: body.EndHour, Minute: body.EndMinute},
		days, body.Enabled,
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.ConfigureLightning(cfg); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLightningPreview(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.PreviewLightning(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSceneList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, lo.Map(s.scenes.List(), func(sc *scene.Scene, _ int) sceneBody {
		return sceneResponse(sc)
	}))
}

func (s *Server) handleSceneRegister(w http.ResponseWriter, r *http.Request) {
	var body sceneBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	mode, err := parseMode(body.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	keyframes := make([]scene.Keyframe, 0, len(body.Keyframes))
	for _, k := range body.Keyframes {
		color, err := protocol.NewColor(k.Color.R, k.Color.G, k.Color.B, k.Color.WarmWhite, k.Color.CoolWhite)
		if err != nil {
			s.writeError(w, err)
			return
		}
		keyframes = append(keyframes, scene.Keyframe{
			Hour:       k.Hour,
			Minute:     k.Minute,
			Color:      color,
			Brightness: k.Brightness,
		})
	}

	sc, err := scene.New(body.Name, mode, keyframes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.scenes.Register(sc); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sceneResponse(sc))
}

func (s *Server) handleSceneUnregister(w http.ResponseWriter, r *http.Request) {
	mode, err := s.pathMode(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.scenes.Unregister(mode); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScenePreview evaluates a scene at a given time of day without
// touching the device, so a schedule can be inspected before activating it.
func (s *Server) handleScenePreview(w http.ResponseWriter, r *http.Request) {
	mode, err := s.pathMode(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sc, ok := s.scenes.Get(mode)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scene registered for mode " + mode.String()})
		return
	}

	at := time.Now()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse("15:04", v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: at must be HH:MM, got %q", protocol.ErrValidation, v))
			return
		}
		at = time.Date(at.Year(), at.Month(), at.Day(), parsed.Hour(), parsed.Minute(), 0, 0, at.Location())
	}

	color, brightness := sc.StateAt(at)
	s.writeJSON(w, http.StatusOK, struct {
		Mode       int       `json:"mode"`
		At         string    `json:"at"`
		Color      colorBody `json:"color"`
		Brightness int       `json:"brightness"`
	}{
		Mode: int(mode),
		At:   at.Format("15:04"),
		Color: colorBody{
			R:         color.R,
			G:         color.G,
			B:         color.B,
			WarmWhite: color.WarmWhite,
			CoolWhite: color.CoolWhite,
		},
		Brightness: brightness,
	})
}

func (s *Server) pathMode(r *http.Request) (protocol.Mode, error) {
	raw := r.PathValue("mode")
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: mode must be numeric, got %q", protocol.ErrValidation, raw)
	}
	return parseMode(value)
}
