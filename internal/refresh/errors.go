package refresh

import "errors"

var ErrRefreshInProgress = errors.New("refresh_in_progress")
