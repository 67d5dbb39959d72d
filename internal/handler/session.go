package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/config"
	"github.com/rcarmo/landstalker/internal/gamedata"
	"github.com/rcarmo/landstalker/internal/labels"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/text"
	"github.com/rcarmo/landstalker/internal/tile"
	"github.com/rcarmo/landstalker/internal/tileset"
)

var log = logging.For("handler")

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

var errNoRom = errors.New("no ROM loaded")

// Request is one message from the browser. Binary payloads travel as
// base64 in Data.
type Request struct {
	ID      int    `json:"id,omitempty"`
	Op      string `json:"op"`
	Data    string `json:"data,omitempty"`
	Format  string `json:"format,omitempty"`
	Name    string `json:"name,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Palette string `json:"palette,omitempty"`
	Scale   int    `json:"scale,omitempty"`
}

// Response answers one Request. Failures carry the error text and its kind.
type Response struct {
	ID     int         `json:"id,omitempty"`
	Op     string      `json:"op"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   string      `json:"kind,omitempty"`
}

type opFunc func(h *Handler, req *Request, data []byte) (interface{}, error)

var ops = map[string]opFunc{
	"lz77.decode":    lz77Decode,
	"lz77.encode":    lz77Encode,
	"string.decode":  stringDecode,
	"tile.decode":    tileDecode,
	"palette.decode": paletteDecode,
	"tileset.png":    tilesetPNG,
	"rom.info":       romInfo,
	"rom.section":    romSection,
	"rom.commit":     romCommit,
	"entry.list":     entryList,
	"entry.get":      entryGet,
	"entry.set":      entrySet,
}

// Handler serves edit sessions. The ROM, when one is configured, and its
// game data are shared between sessions; edits from any session land in the
// image on rom.commit.
type Handler struct {
	allowed    []string
	maxRequest int64
	text       *text.Context

	mu   sync.Mutex
	path string
	rom  *rom.Rom
	data *gamedata.GameData
}

// New builds a handler from the configuration, loading the ROM and its game
// data when a path is set.
func New(cfg *config.Config) (*Handler, error) {
	h := &Handler{
		allowed:    cfg.Security.AllowedOrigins,
		maxRequest: int64(cfg.Rom.MaxRequest),
		text:       text.DefaultContext(),
	}
	if cfg.Rom.Path == "" {
		return h, nil
	}
	r, data, err := OpenRom(cfg.Rom)
	if err != nil {
		return nil, err
	}
	h.path, h.rom, h.data = cfg.Rom.Path, r, data
	return h, nil
}

// OpenRom loads the image, offsets and labels named by cfg and decodes the
// game data.
func OpenRom(cfg config.RomConfig) (*rom.Rom, *gamedata.GameData, error) {
	offsets := rom.DefaultOffsets()
	if cfg.OffsetsPath != "" {
		f, err := os.Open(cfg.OffsetsPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open offsets")
		}
		offsets, err = rom.LoadOffsets(f)
		f.Close()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "offsets %s", cfg.OffsetsPath)
		}
	}
	r, err := rom.LoadWithOffsets(cfg.Path, offsets)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Region != "" && cfg.Region != "auto" {
		region, err := rom.ParseRegion(cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		r.SetRegion(region)
	}
	l, err := labels.LoadFile(cfg.LabelsPath)
	if err != nil {
		return nil, nil, err
	}
	data := gamedata.New(l)
	if err := data.Load(r); err != nil {
		return nil, nil, errors.Wrapf(err, "load %s", cfg.Path)
	}
	return r, data, nil
}

// Session upgrades the request to a websocket and answers requests until
// the browser goes away.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(r.Header.Get("Origin"), h.allowed)
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade websocket: %v", err)
		return
	}

	defer func() {
		if err = wsConn.Close(); err != nil {
			log.Debug("error closing websocket: %v", err)
		}
	}()

	if h.maxRequest > 0 {
		wsConn.SetReadLimit(h.maxRequest)
	}

	log.Info("session opened from %s", r.RemoteAddr)
	for {
		_, msg, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("session from %s closed", r.RemoteAddr)
			} else {
				log.Warn("error reading message from ws: %v", err)
			}
			return
		}

		resp := h.handle(msg)
		if err = wsConn.WriteJSON(resp); err != nil {
			if err == websocket.ErrCloseSent {
				return
			}
			log.Warn("failed sending message to ws: %v", err)
			return
		}
	}
}

func (h *Handler) handle(msg []byte) *Response {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(&req, codec.Malformed("request", err, "bad JSON"))
	}
	fn, ok := ops[req.Op]
	if !ok {
		return errorResponse(&req, codec.Config("request", nil, "unknown op %q", req.Op))
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return errorResponse(&req, codec.Malformed(req.Op, err, "data is not base64"))
	}
	result, err := fn(h, &req, data)
	if err != nil {
		log.Debug("%s: %v", req.Op, err)
		return errorResponse(&req, err)
	}
	return &Response{ID: req.ID, Op: req.Op, Result: result}
}

func errorResponse(req *Request, err error) *Response {
	kind := "internal"
	if k := codec.KindOf(err); k != 0 {
		kind = k.String()
	}
	return &Response{ID: req.ID, Op: req.Op, Error: err.Error(), Kind: kind}
}

func encoded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func lz77Decode(_ *Handler, _ *Request, data []byte) (interface{}, error) {
	out, n, err := codec.LZ77Decode(data)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"data": encoded(out), "consumed": n}, nil
}

func lz77Encode(_ *Handler, _ *Request, data []byte) (interface{}, error) {
	out := codec.LZ77Encode(data)
	return map[string]interface{}{"data": encoded(out), "ratio": ratio(len(out), len(data))}, nil
}

func ratio(packed, raw int) float64 {
	if raw == 0 {
		return 0
	}
	return float64(packed) / float64(raw)
}

type stringResult struct {
	Format   string `json:"format"`
	Text     string `json:"text"`
	Display  string `json:"display"`
	Line     string `json:"line"`
	Consumed int    `json:"consumed"`
}

func stringDecode(h *Handler, req *Request, data []byte) (interface{}, error) {
	f, err := text.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	var out []stringResult
	for pos := 0; pos < len(data); {
		s, n, err := h.text.Decode(f, data[pos:])
		if err != nil {
			return nil, errors.Wrapf(err, "string %d", len(out))
		}
		if n == 0 {
			break
		}
		out = append(out, stringResult{
			Format:   f.String(),
			Text:     s.Text,
			Display:  h.text.Display(s),
			Line:     h.text.Serialise(s),
			Consumed: n,
		})
		pos += n
	}
	return out, nil
}

type tileResult struct {
	Value    uint16 `json:"value"`
	Index    int    `json:"index"`
	HFlip    bool   `json:"hflip"`
	VFlip    bool   `json:"vflip"`
	Priority bool   `json:"priority"`
}

func tileDecode(_ *Handler, _ *Request, data []byte) (interface{}, error) {
	if len(data)%2 != 0 {
		return nil, codec.Malformed("tile.decode", codec.ErrBufferUnderrun, "odd length %d", len(data))
	}
	out := make([]tileResult, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		t := tile.New(binary.BigEndian.Uint16(data[i:]))
		out = append(out, tileResult{
			Value:    t.Value(),
			Index:    t.Index(),
			HFlip:    t.HFlip(),
			VFlip:    t.VFlip(),
			Priority: t.Priority(),
		})
	}
	return out, nil
}

type colourResult struct {
	Genesis     uint16 `json:"genesis"`
	RGB         string `json:"rgb"`
	Transparent bool   `json:"transparent"`
	Locked      bool   `json:"locked"`
}

func parsePalette(name string, data []byte) (*palette.Palette, error) {
	if name == "" {
		name = "full"
	}
	typ, ok := palette.ParseType(name)
	if !ok {
		return nil, codec.Config("palette", nil, "unknown palette type %q", name)
	}
	return palette.FromBytes(name, data, typ)
}

func paletteDecode(_ *Handler, req *Request, data []byte) (interface{}, error) {
	p, err := parsePalette(req.Format, data)
	if err != nil {
		return nil, err
	}
	locked := p.Locked()
	out := make([]colourResult, p.Len())
	for i := range out {
		c := p.Colour(i)
		out[i] = colourResult{
			Genesis:     c.Genesis(),
			RGB:         fmt.Sprintf("#%06X", c.RGB()),
			Transparent: c.Transparent,
			Locked:      i < len(locked) && locked[i],
		}
	}
	return out, nil
}

func tilesetPNG(_ *Handler, req *Request, data []byte) (interface{}, error) {
	ts, _, err := tileset.Decode(data, req.Format == "compressed")
	if err != nil {
		return nil, err
	}
	pal := palette.New("debug", palette.TypeFull)
	if req.Palette != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Palette)
		if err != nil {
			return nil, codec.Malformed(req.Op, err, "palette is not base64")
		}
		if pal, err = parsePalette("full", raw); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := ts.ExportPNG(&buf, pal, tileset.SheetColumns, req.Scale); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return map[string]interface{}{"png": encoded(buf.Bytes()), "tiles": ts.TileCount()}, nil
}

func romInfo(h *Handler, _ *Request, _ []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rom == nil {
		return nil, codec.Config("rom.info", errNoRom, "")
	}
	hdr, err := h.rom.Header()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"title":          hdr.Title(),
		"region":         h.rom.Region().String(),
		"regionName":     h.rom.RegionName(),
		"checksum":       h.rom.Checksum(),
		"storedChecksum": h.rom.StoredChecksum(),
		"summary":        h.data.Summary(),
	}, nil
}

func romSection(h *Handler, req *Request, _ []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rom == nil {
		return nil, codec.Config("rom.section", errNoRom, "")
	}
	sec, err := h.rom.Section(req.Name)
	if err != nil {
		return nil, err
	}
	b, err := h.rom.ReadSection(req.Name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"begin": sec.Begin, "end": sec.End, "data": encoded(b)}, nil
}

func romCommit(h *Handler, _ *Request, _ []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rom == nil {
		return nil, codec.Config("rom.commit", errNoRom, "")
	}
	modified := h.data.HasBeenModified()
	if modified {
		if err := h.data.InjectIntoRom(h.rom); err != nil {
			return nil, err
		}
		if err := h.rom.Save(h.path); err != nil {
			return nil, err
		}
		log.Info("committed edits to %s", h.path)
	}
	return map[string]interface{}{"written": modified, "checksum": h.rom.StoredChecksum()}, nil
}

func entryList(h *Handler, _ *Request, _ []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		return nil, codec.Config("entry.list", errNoRom, "")
	}
	return h.data.Entries(), nil
}

func entryGet(h *Handler, req *Request, _ []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		return nil, codec.Config("entry.get", errNoRom, "")
	}
	b, err := h.data.EntryBytes(req.Kind, req.Name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"data": encoded(b)}, nil
}

func entrySet(h *Handler, req *Request, data []byte) (interface{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		return nil, codec.Config("entry.set", errNoRom, "")
	}
	if err := h.data.SetEntryBytes(req.Kind, req.Name, data); err != nil {
		return nil, err
	}
	return map[string]interface{}{"modified": h.data.HasBeenModified()}, nil
}

func isAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	// Always allow localhost-style origins for development, even when a list is provided
	if strings.HasPrefix(normalized, "localhost") || strings.HasPrefix(normalized, "127.0.0.1") {
		return true
	}

	for _, entry := range allowed {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}

		// Support allow-list entries with or without scheme
		if candidate == origin || candidate == normalized {
			return true
		}

		if strings.TrimPrefix(candidate, "http://") == normalized || strings.TrimPrefix(candidate, "https://") == normalized {
			return true
		}
	}

	return false
}
