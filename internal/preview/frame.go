package preview

import (
	"html/template"
	"io"
)

// FrameData feeds the playground host page.
type FrameData struct {
	Document Document
	Examples []string
	// SocketPath is where the page streams edits; empty disables live updates.
	SocketPath string
}

// The frame only gets allow-scripts: no same-origin access, no top-level
// navigation, no forms or popups.
var frameTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>CodeMaster Playground</title>
<style>
  body { margin: 0; font-family: Arial, sans-serif; background: #111827; color: #e5e7eb; }
  .editors { display: grid; grid-template-columns: repeat(3, 1fr); gap: 8px; padding: 8px; }
  textarea { width: 100%; height: 220px; background: #1f2937; color: #d1fae5; font-family: monospace; border: 1px solid #374151; }
  .bar { padding: 8px; display: flex; gap: 8px; }
  iframe { width: 100%; height: 60vh; border: 0; background: white; }
</style>
</head>
<body>
<div class="bar">
  {{range .Examples}}<button data-example="{{.}}">{{.}}</button>{{end}}
  <button id="clear">clear</button>
</div>
<div class="editors">
  <textarea id="html" data-buffer="html">{{.Document.Sources.Markup}}</textarea>
  <textarea id="css" data-buffer="css">{{.Document.Sources.Style}}</textarea>
  <textarea id="js" data-buffer="js">{{.Document.Sources.Script}}</textarea>
</div>
<iframe id="preview" title="preview" sandbox="allow-scripts" srcdoc="{{.Document.HTML}}"></iframe>
{{if .SocketPath}}
<script>
(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + {{.SocketPath}});
  var frame = document.getElementById("preview");
  var version = {{.Document.Version}};
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type !== "preview" || msg.payload.version < version) { return; }
    version = msg.payload.version;
    frame.srcdoc = msg.payload.document;
    ["html", "css", "js"].forEach(function (id) {
      var el = document.getElementById(id);
      if (document.activeElement !== el) { el.value = msg.payload.sources[id]; }
    });
  };
  document.querySelectorAll("textarea[data-buffer]").forEach(function (el) {
    el.addEventListener("input", function () {
      ws.send(JSON.stringify({ type: "edit", payload: { buffer: el.dataset.buffer, text: el.value } }));
    });
  });
  document.querySelectorAll("button[data-example]").forEach(function (el) {
    el.addEventListener("click", function () {
      ws.send(JSON.stringify({ type: "load", payload: { example: el.dataset.example } }));
    });
  });
  document.getElementById("clear").addEventListener("click", function () {
    ws.send(JSON.stringify({ type: "clear" }));
  });
})();
</script>
{{end}}
</body>
</html>
`))

// RenderFrame writes the playground host page with the document in a
// sandboxed iframe.
func RenderFrame(w io.Writer, data FrameData) error {
	return frameTemplate.Execute(w, data)
}
