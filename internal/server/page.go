package server

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 16px; }
#stack { position: relative; width: {{.Width}}px; height: {{.Height}}px; border: 1px solid #ccc; }
#stack img { position: absolute; left: 0; top: 0; width: {{.Width}}px; height: {{.Height}}px; }
#overlay { cursor: crosshair; }
#state { font-family: monospace; white-space: pre; margin-top: 8px; }
</style>
</head>
<body>
<h3>{{.Title}}</h3>
<div id="stack">
<img id="frame" src="/frame.png" alt="frame" draggable="false">
<img id="overlay" src="/overlay.png" alt="overlay" draggable="false">
</div>
<div id="state"></div>
<script>
(function () {
  var frame = document.getElementById("frame");
  var overlay = document.getElementById("overlay");
  var state = document.getElementById("state");
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");

  ws.onmessage = function (msg) {
    var v = JSON.parse(msg.data);
    frame.src = "data:image/png;base64," + v.frame;
    overlay.src = "data:image/png;base64," + v.overlay;
    var s = v.state;
    var lines = ["tick " + v.tick, "phase " + s.phase];
    if (s.hovered) lines.push("hover (" + s.hovered.col + "," + s.hovered.row + ")");
    if (s.selected) lines.push("selected (" + s.selected.col + "," + s.selected.row + ")");
    (s.hits || []).forEach(function (h) { lines.push("  " + h.layer + " " + h.datum.color); });
    lines.push("frame " + s.frames.mean_ms.toFixed(2) + "ms p95 " + s.frames.p95_ms.toFixed(2) + "ms");
    state.textContent = lines.join("\n");
  };

  function send(kind, e) {
    if (ws.readyState !== WebSocket.OPEN) return;
    var x = 0, y = 0;
    if (e) {
      x = e.offsetX * overlay.naturalWidth / overlay.clientWidth;
      y = e.offsetY * overlay.naturalHeight / overlay.clientHeight;
    }
    ws.send(JSON.stringify({kind: kind, x: x, y: y}));
  }
  overlay.addEventListener("mouseenter", function (e) { send("enter", e); });
  overlay.addEventListener("mousemove", function (e) { send("move", e); });
  overlay.addEventListener("mousedown", function (e) { send("down", e); });
  overlay.addEventListener("mouseleave", function () { send("leave"); });
})();
</script>
</body>
</html>
`))

// page serves the two stacked canvases: the frame underneath and the
// pointer overlay on top.
func (s *Server) page(c *gin.Context) {
	w, h := s.spec.SurfaceSize()
	c.HTML(http.StatusOK, "page", gin.H{
		"Title":  s.title,
		"Width":  w,
		"Height": h,
	})
}
