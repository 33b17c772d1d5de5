// Package shared holds cross-cutting helpers used by every other package.
//
//   - Configuration: [Config] is read from config.toml with [LoadConfig], falling back to the embedded
//     example via [DefaultConfig].
//   - Logging: [NewLogger] and [NewFileLogger] build charmbracelet loggers; [WithLogger] derives
//     component loggers.
//   - Storage: [OpenStore] opens the local SQLite file and applies the embedded migrations. The store replaces
//     browser local storage: session snapshot, preference flags and the device push subscription.
//   - Errors: sentinel errors wrapped with %w and matched with errors.Is.
package shared
