package msgindex

// messageTableSchema is the explorer-style secondary index: one row
// per applied message, enough to answer "what has this address sent/
// received" without touching the authoritative SMT. It is rebuildable
// from scratch from the applied-message log, so losing the file never
// affects consensus or conservation.
const messageTableSchema = `
create table if not exists message (
	id        blob(32) primary key,
	kind      integer,
	fromAddr  blob(32),
	toAddr    blob(32),
	tokenId   integer,
	amount    blob(16),
	nonce     integer,
	root      blob(32),
	appliedAt integer
);

CREATE INDEX if not exists fromIndex on message(fromAddr);
CREATE INDEX if not exists toIndex on message(toAddr);
CREATE INDEX if not exists tokenIndex on message(tokenId);
`
