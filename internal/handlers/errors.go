package handlers

import "errors"

var errNoTasks = errors.New("requires a non-empty tasks sequence")
