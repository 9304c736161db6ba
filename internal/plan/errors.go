package plan

import "github.com/nanodb-project/nanodb/internal/nerr"

var errMarkUnsupported = nerr.ErrUnsupportedConstruct("mark/reset on this plan node")
