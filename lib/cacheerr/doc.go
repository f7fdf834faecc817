// Package cacheerr provides the single error kind used by every persistence layer of dPersist.
//
// An Error carries a code from a closed enumeration (ErrCode), an optional detail text and an
// optional underlying cause. The rendered message is stable and parseable by tooling:
//
//	ConfigError                  // New(ErrCConfig)
//	ConfigError:path is empty    // NewWithDetail(ErrCConfig, "path is empty")
//
// A cause is never appended to the message. It is preserved for programmatic inspection:
//
//	err := cacheerr.NewWithCause(cacheerr.ErrCUnknown, "open file", fsErr)
//	errors.Is(err, fsErr) // true
//
// Layers use Wrap when passing failures upwards. Wrap keeps an already categorized error untouched,
// so a ConfigError raised deep inside a codec is still a ConfigError at the public API.
package cacheerr
