package history

import "errors"

var ErrNoEmbedder = errors.New("similarity search needs EMBEDDING_MODEL to be configured")
