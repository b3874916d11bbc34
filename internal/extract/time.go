package extract

import "time"

// timeNow is a package-level variable for testability.
// Tests replace this to pin "now" for deadline checks.
var timeNow = time.Now
