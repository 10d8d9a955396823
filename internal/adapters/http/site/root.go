// Package site serves the live leaderboard page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

// Register attaches the live leaderboard page to mux at the root path.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
}

// indexHTML renders the global cumulative-score board and keeps it current
// over the streaming endpoint.
const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Leaderboard</title>
    <style>
      body{font-family:sans-serif;margin:2rem;max-width:40rem}
      table{border-collapse:collapse;width:100%}
      td,th{border-bottom:1px solid #ddd;padding:.4rem .6rem;text-align:left}
      td:last-child,th:last-child{text-align:right}
    </style>
  </head>
  <body>
    <h1>Leaderboard</h1>
    <table>
      <thead><tr><th>#</th><th>Player</th><th>Score</th></tr></thead>
      <tbody id="board"></tbody>
    </table>
    <script>
      const board = document.getElementById('board');
      function render(entries) {
        board.innerHTML = '';
        for (const e of entries) {
          const tr = document.createElement('tr');
          for (const v of [e.rank, e.display_name, e.score]) {
            const td = document.createElement('td');
            td.textContent = v;
            tr.appendChild(td);
          }
          board.appendChild(tr);
        }
      }
      fetch('/leaderboard?limit=10')
        .then(r => r.json())
        .then(render);
      const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
      const ws = new WebSocket(proto + '//' + location.host + '/ws');
      ws.onmessage = ev => {
        const msg = JSON.parse(ev.data);
        if (msg.topic === 'leaderboard:cumulative-score') {
          render(msg.data);
        }
      };
    </script>
  </body>
</html>`
