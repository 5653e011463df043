package postgres

// SQL queries for object and key-value storage

const (
	// queryGetObject reads one log shard.
	queryGetObject = `
		SELECT content
		FROM objects
		WHERE key = $1
	`

	// queryPutObject replaces a whole log shard.
	// There is no version check: concurrent writers to one key are last-write-wins.
	queryPutObject = `
		INSERT INTO objects (key, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
	`

	// queryListObjects enumerates keys under a prefix.
	// $1 is a LIKE pattern built by likePrefix.
	queryListObjects = `
		SELECT key
		FROM objects
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key ASC
	`

	queryGetEntry = `
		SELECT value
		FROM kv_entries
		WHERE key = $1
	`

	queryPutEntry = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
)
