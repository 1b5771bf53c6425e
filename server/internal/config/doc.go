// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort             port for the API, score stream and static files (default 5000)
//   - LogLevel             debug | info | warn | error (default info)
//   - StaticDir            directory holding the map front end (index.html),
//     served at "/". There is no built-in page: with the default empty value
//     "/" answers 404 and only the API, /ws/scores and /metrics are served.
//   - Ratings.Strict       reject ratings outside 1..5 instead of counting them as 5
//   - Ratings.RateLimit    rating submissions per second per client (0 disables)
//   - Adjustment.Clamp     optional [min, max] bound on accumulated adjustments
//   - Advisory.*           OpenAI-compatible text generation; off unless Enabled
//     and the key named by KeyEnv is set
//   - Stream.Interval      score broadcast interval (default 5s)
//   - Alerts               route safety rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) re-loads the file on every write and hands the new
// Config to fn; invalid edits are logged and ignored.
package config
