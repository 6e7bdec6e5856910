package dashboard

// rootPage is the single-page live view served at /. The placeholder
// receives the request host for the WebSocket URL.
const rootPage = `<!DOCTYPE html>
<html>
<head>
    <title>Sheetsync Dashboard</title>
    <style>
        body { font-family: monospace; margin: 2rem; background: #111; color: #ddd; }
        h1 { font-size: 1.2rem; }
        #status { margin-bottom: 1rem; }
        .ok { color: #6c6; }
        .error, .needs_auth { color: #c66; }
        .skipped { color: #999; }
        #log { list-style: none; padding: 0; }
        #log li { padding: 2px 0; border-bottom: 1px solid #222; }
        a, button { color: #8cf; }
    </style>
</head>
<body>
    <h1>Sheetsync Dashboard</h1>
    <div id="status">Connecting&hellip;</div>
    <p>
        <button onclick="fetch('/api/sync',{method:'POST'})">Sync now</button>
        <a href="/api/status">Status</a>
        <a href="/api/history">History</a>
        <a href="/health">Health</a>
    </p>
    <ul id="log"></ul>
    <script>
        const status = document.getElementById('status');
        const log = document.getElementById('log');
        const ws = new WebSocket('ws://%s/ws');
        ws.onopen = () => { status.textContent = 'Connected, waiting for sync events'; };
        ws.onclose = () => { status.textContent = 'Disconnected'; };
        ws.onmessage = (e) => {
            const msg = JSON.parse(e.data);
            if (msg.type === 'stats' && msg.data) {
                status.textContent = msg.data.total_syncs + ' syncs, ' +
                    msg.data.rows_synced + ' rows written, last status: ' +
                    (msg.data.last_status || 'n/a');
                return;
            }
            const li = document.createElement('li');
            li.className = msg.data && msg.data.status ? msg.data.status : msg.type;
            li.textContent = new Date(msg.timestamp).toLocaleTimeString() + ' ' +
                msg.type + ' ' + JSON.stringify(msg.data || {});
            log.prepend(li);
        };
    </script>
</body>
</html>
`
