// Package index loads and serves the static hierarchical corpus index.
//
// The index is four levels deep: themes, episodes, topics and quote chunks.
// It is read once at process start from a directory (or any fs.FS) laid out as:
//
//	themes.json               {"themes":   [{id, name, description}]}
//	episodes.json             {"episodes": [{id, title, guest, summary, theme_ids, deep_link_base}]}
//	topics/<episode_id>.json  {"topics":   [{id, label, description}]}
//	quotes/<topic_id>.json    {"quotes":   [{text, speaker, timestamp, episode_id}]}
//
// Loading fails fast with ErrIndexMissing or ErrIndexMalformed; there is no
// partial-index mode. A loaded Store has no mutation API and is safe for
// unsynchronized concurrent reads. Accessors return copies.
package index
