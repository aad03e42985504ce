// Package fixture serves a local stand-in for the registry search page and
// locates a Chrome binary for backend integration tests.
package fixture

import (
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
)

// SearchPage renders result rows 200ms after submit. The query "NONE" yields
// no rows; "BROKEN" yields rows without value cells. The address row mixes
// a line break with hidden text.
const SearchPage = `<!DOCTYPE html>
<html><head><title>Master Data</title></head>
<body>
<input id="company-search" type="text" value="stale text">
<button id="search-submit" type="button" disabled>Search</button>
<div id="results"></div>
<script>
setTimeout(function () { document.getElementById('search-submit').disabled = false; }, 100);
document.getElementById('search-submit').addEventListener('click', function () {
	var q = document.getElementById('company-search').value;
	setTimeout(function () {
		var out = document.getElementById('results');
		out.innerHTML = '';
		if (q === 'NONE') { return; }
		var rows = [
			['Company Name', q],
			['Company Status', 'Active'],
			['Registered Address', '12 Nariman Point<br>Mumbai<span style="display:none">HIDDEN</span>', true]
		];
		rows.forEach(function (r) {
			var div = document.createElement('div');
			div.className = 'company-result';
			var k = document.createElement('span');
			k.className = 'detail-key';
			k.textContent = r[0];
			div.appendChild(k);
			if (q !== 'BROKEN') {
				var v = document.createElement('span');
				v.className = 'detail-value';
				if (r[2]) { v.innerHTML = r[1]; } else { v.textContent = r[1]; }
				div.appendChild(v);
			}
			out.appendChild(div);
		});
	}, 200);
});
</script>
</body></html>`

// RenderedAddress is the visible text of the address row.
const RenderedAddress = "12 Nariman Point\nMumbai"

// Server starts an httptest server serving SearchPage at /mds.html.
func Server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mds.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(SearchPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ChromePath returns a local Chrome/Chromium binary or skips the test.
func ChromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium binary on PATH")
	return ""
}
