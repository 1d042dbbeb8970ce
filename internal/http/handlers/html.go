package handlers

import (
	"html/template"
	"net/http"
)

// Páginas HTML del endpoint /authorize. La landing embebe el request_id en
// atributos data-* y en un <meta> para que el agente que controla el browser
// lo lea; el script de polling es del integrador, no nuestro.
var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="agentgate-request-id" content="{{.RequestID}}">
<title>Authorizing…</title>
<style>
body{font-family:system-ui,sans-serif;background:#0b0e14;color:#e6e6e6;display:flex;align-items:center;justify-content:center;height:100vh;margin:0}
.card{text-align:center;max-width:28rem;padding:2rem}
.spinner{width:48px;height:48px;margin:0 auto 1.5rem;border:4px solid #2a2f3a;border-top-color:#4f8cff;border-radius:50%;animation:spin 1s linear infinite}
@keyframes spin{to{transform:rotate(360deg)}}
h1{font-size:1.25rem;font-weight:600}
p{color:#9aa4b2;font-size:.9rem}
code{background:#1a1f2b;padding:.15rem .4rem;border-radius:4px;font-size:.8rem}
</style>
</head>
<body data-request-id="{{.RequestID}}">
<div class="card">
  <div class="spinner"></div>
  <h1>Waiting for agent authorization</h1>
  <p>{{.ClientName}} is requesting access ({{.Scope}}).</p>
  <p>Request <code>{{.RequestID}}</code></p>
</div>
</body>
</html>
`))

var errorTmpl = template.Must(template.New("autherror").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Authorization error</title>
<style>
body{font-family:system-ui,sans-serif;background:#0b0e14;color:#e6e6e6;display:flex;align-items:center;justify-content:center;height:100vh;margin:0}
.card{text-align:center;max-width:28rem;padding:2rem}
h1{font-size:1.25rem;color:#ff6b6b}
p{color:#9aa4b2;font-size:.9rem}
code{background:#1a1f2b;padding:.15rem .4rem;border-radius:4px;font-size:.8rem}
</style>
</head>
<body>
<div class="card">
  <h1>Authorization error</h1>
  <p>{{.Description}}</p>
  <p><code>{{.Kind}}</code></p>
</div>
</body>
</html>
`))

type landingData struct {
	RequestID  string
	ClientName string
	Scope      string
}

type errorPageData struct {
	Kind        string
	Description string
}

// writeErrorPage responde 200 HTML: en /authorize no podemos redirigir a un
// redirect_uri no verificado, así que el error se muestra en la página.
func writeErrorPage(w http.ResponseWriter, kind, desc string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = errorTmpl.Execute(w, errorPageData{Kind: kind, Description: desc})
}
