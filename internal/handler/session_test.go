package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/config"
)

type rawResponse struct {
	ID     int             `json:"id"`
	Op     string          `json:"op"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Kind   string          `json:"kind"`
}

func testConfig() *config.Config {
	return &config.Config{
		Rom:      config.RomConfig{Region: "auto", MaxRequest: 1 << 20},
		Security: config.SecurityConfig{AllowedOrigins: []string{"https://editor.example"}},
	}
}

func startSession(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/session", h.Session)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/session"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://localhost:8080"}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) rawResponse {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp rawResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, req.ID, resp.ID)
	return resp
}

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"empty origin", "", nil, false},
		{"localhost default", "http://localhost:8080", nil, true},
		{"127.0.0.1 default", "http://127.0.0.1:8080", nil, true},
		{"external origin without list", "http://example.com", nil, false},
		{"listed with scheme", "https://editor.example", []string{"https://editor.example"}, true},
		{"listed without scheme", "https://editor.example/", []string{"editor.example"}, true},
		{"not listed", "https://other.example", []string{"https://editor.example"}, false},
		{"localhost with list", "http://localhost:3000", []string{"https://editor.example"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAllowedOrigin(tt.origin, tt.allowed))
		})
	}
}

func TestSession_RejectsOrigin(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(h.Session))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSession_LZ77(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	raw := bytes.Repeat([]byte("LANDSTALKER "), 20)
	resp := roundTrip(t, conn, Request{ID: 1, Op: "lz77.encode", Data: b64(raw)})
	require.Empty(t, resp.Error)
	var enc struct {
		Data  string  `json:"data"`
		Ratio float64 `json:"ratio"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &enc))
	assert.Less(t, enc.Ratio, 0.5)

	resp = roundTrip(t, conn, Request{ID: 2, Op: "lz77.decode", Data: enc.Data})
	require.Empty(t, resp.Error)
	var dec struct {
		Data     string `json:"data"`
		Consumed int    `json:"consumed"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &dec))
	out, err := base64.StdEncoding.DecodeString(dec.Data)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	packed, _ := base64.StdEncoding.DecodeString(enc.Data)
	assert.Equal(t, len(packed), dec.Consumed)
}

func TestSession_TileDecode(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 3, Op: "tile.decode", Data: b64([]byte{0x98, 0x05, 0x00, 0x2A})})
	require.Empty(t, resp.Error)
	var tiles []tileResult
	require.NoError(t, json.Unmarshal(resp.Result, &tiles))
	assert.Equal(t, []tileResult{
		{Value: 0x9805, Index: 5, HFlip: true, VFlip: true, Priority: true},
		{Value: 0x002A, Index: 0x2A},
	}, tiles)

	resp = roundTrip(t, conn, Request{ID: 4, Op: "tile.decode", Data: b64([]byte{0x98})})
	assert.Equal(t, "malformed", resp.Kind)
}

func TestSession_PaletteDecode(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 5, Op: "palette.decode", Format: "lava", Data: b64([]byte{0x0E, 0xEE, 0x00, 0x0E})})
	require.Empty(t, resp.Error)
	var colours []colourResult
	require.NoError(t, json.Unmarshal(resp.Result, &colours))
	require.Len(t, colours, 16)
	assert.Equal(t, colourResult{Genesis: 0x0EEE, RGB: "#FCFCFC"}, colours[8])
	assert.Equal(t, colourResult{Genesis: 0x000E, RGB: "#FC0000"}, colours[9])
	assert.True(t, colours[0].Locked)

	resp = roundTrip(t, conn, Request{ID: 6, Op: "palette.decode", Format: "sepia"})
	assert.Equal(t, "config", resp.Kind)
}

func TestSession_StringDecode(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 7, Op: "string.decode", Format: "endcredit", Data: b64([]byte{0xFF, 0xFF, 0x02, 0xFF, 0x00})})
	require.Empty(t, resp.Error)
	var strs []stringResult
	require.NoError(t, json.Unmarshal(resp.Result, &strs))
	require.Len(t, strs, 2)
	assert.Equal(t, 2, strs[0].Consumed)
	assert.Equal(t, 3, strs[1].Consumed)
	assert.Equal(t, "endcredit", strs[1].Format)

	resp = roundTrip(t, conn, Request{ID: 8, Op: "string.decode", Format: "morse"})
	assert.Equal(t, "config", resp.Kind)
}

func TestSession_TilesetPNG(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 9, Op: "tileset.png", Data: b64(bytes.Repeat([]byte{0x12}, 64)), Scale: 2})
	require.Empty(t, resp.Error)
	var out struct {
		PNG   string `json:"png"`
		Tiles int    `json:"tiles"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	assert.Equal(t, 2, out.Tiles)
	img, err := base64.StdEncoding.DecodeString(out.PNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}

func TestSession_Errors(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 10, Op: "rom.patch"})
	assert.Equal(t, "config", resp.Kind)
	assert.Contains(t, resp.Error, "rom.patch")

	resp = roundTrip(t, conn, Request{ID: 11, Op: "lz77.decode", Data: "not base64!"})
	assert.Equal(t, "malformed", resp.Kind)

	resp = roundTrip(t, conn, Request{ID: 12, Op: "lz77.decode", Data: b64([]byte{0x00, 0x00, 0x10})})
	assert.Equal(t, "malformed", resp.Kind)

	resp = roundTrip(t, conn, Request{ID: 13, Op: "rom.info"})
	assert.Equal(t, "config", resp.Kind)
	assert.Contains(t, resp.Error, "no ROM loaded")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	var bad rawResponse
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "malformed", bad.Kind)
}

func writeTestRom(t *testing.T) string {
	t.Helper()
	data := make([]byte, 0x200000)
	copy(data[0x150:], bytes.Repeat([]byte{' '}, 48))
	copy(data[0x150:], "LANDSTALKER")
	copy(data[0x202:], "93/07/13 20:03")
	binary.BigEndian.PutUint32(data[0x00A114:], 0x41FA0092)
	copy(data[0x00A1A8:], bytes.Repeat([]byte{0xFF}, 8))
	path := filepath.Join(t.TempDir(), "landstalker.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSession_Rom(t *testing.T) {
	cfg := testConfig()
	cfg.Rom.Path = writeTestRom(t)
	h, err := New(cfg)
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 14, Op: "rom.info"})
	require.Empty(t, resp.Error)
	var info struct {
		Title          string   `json:"title"`
		Region         string   `json:"region"`
		RegionName     string   `json:"regionName"`
		Checksum       uint16   `json:"checksum"`
		StoredChecksum uint16   `json:"storedChecksum"`
		Summary        []string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &info))
	assert.Equal(t, "LANDSTALKER", info.Title)
	assert.Equal(t, "US", info.Region)
	assert.Equal(t, "USA", info.RegionName)
	assert.Len(t, info.Summary, 25)

	resp = roundTrip(t, conn, Request{ID: 15, Op: "rom.section", Name: "MiscWarpSection"})
	require.Empty(t, resp.Error)
	var sec struct {
		Begin uint32 `json:"begin"`
		End   uint32 `json:"end"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &sec))
	assert.Equal(t, uint32(0x00A1A8), sec.Begin)
	assert.Equal(t, uint32(0x00A61C), sec.End)

	resp = roundTrip(t, conn, Request{ID: 16, Op: "rom.section", Name: "NoSuchSection"})
	assert.Equal(t, "config", resp.Kind)
}

func TestSession_EditAndCommit(t *testing.T) {
	cfg := testConfig()
	cfg.Rom.Path = writeTestRom(t)
	h, err := New(cfg)
	require.NoError(t, err)
	conn := startSession(t, h)

	resp := roundTrip(t, conn, Request{ID: 20, Op: "entry.list"})
	require.Empty(t, resp.Error)
	var entries map[string][]string
	require.NoError(t, json.Unmarshal(resp.Result, &entries))
	assert.Equal(t, []string{"MiscWarps"}, entries["warps"])

	resp = roundTrip(t, conn, Request{ID: 21, Op: "entry.get", Kind: "warps", Name: "MiscWarps"})
	require.Empty(t, resp.Error)
	var got struct {
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &got))
	raw, err := base64.StdEncoding.DecodeString(got.Data)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 8), raw[:8])

	resp = roundTrip(t, conn, Request{ID: 22, Op: "rom.commit"})
	require.Empty(t, resp.Error)
	assert.Contains(t, string(resp.Result), `"written":false`)

	edited := []byte{
		0x00, 0x30, 0x00, 0x40, 0xFF, 0xFF,
		0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF,
	}
	resp = roundTrip(t, conn, Request{ID: 23, Op: "entry.set", Kind: "warps", Name: "MiscWarps", Data: b64(edited)})
	require.Empty(t, resp.Error)
	assert.Contains(t, string(resp.Result), `"modified":true`)

	resp = roundTrip(t, conn, Request{ID: 24, Op: "entry.set", Kind: "warps", Name: "MiscWarps", Data: b64([]byte{0x00})})
	assert.Equal(t, "malformed", resp.Kind)
	resp = roundTrip(t, conn, Request{ID: 25, Op: "entry.get", Kind: "warps", Name: "Nowhere"})
	assert.Contains(t, resp.Error, "no such entry")
	resp = roundTrip(t, conn, Request{ID: 26, Op: "entry.get", Kind: "sprockets", Name: "MiscWarps"})
	assert.Equal(t, "config", resp.Kind)

	resp = roundTrip(t, conn, Request{ID: 27, Op: "rom.commit"})
	require.Empty(t, resp.Error)
	assert.Contains(t, string(resp.Result), `"written":true`)

	saved, err := os.ReadFile(cfg.Rom.Path)
	require.NoError(t, err)
	assert.Equal(t, edited[:6], saved[0x00A1A8:0x00A1AE])

	resp = roundTrip(t, conn, Request{ID: 28, Op: "entry.get", Kind: "warps", Name: "MiscWarps"})
	require.Empty(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &got))
	raw, err = base64.StdEncoding.DecodeString(got.Data)
	require.NoError(t, err)
	assert.Equal(t, edited, raw)
}

func TestSession_EditWithoutRom(t *testing.T) {
	h, err := New(testConfig())
	require.NoError(t, err)
	conn := startSession(t, h)

	for i, op := range []string{"entry.list", "entry.get", "entry.set", "rom.commit"} {
		resp := roundTrip(t, conn, Request{ID: 30 + i, Op: op})
		assert.Equal(t, "config", resp.Kind, op)
	}
}

func TestNew_BadRom(t *testing.T) {
	cfg := testConfig()
	cfg.Rom.Path = filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(cfg.Rom.Path, []byte{1, 2, 3}, 0o644))
	_, err := New(cfg)
	assert.Error(t, err)
}
