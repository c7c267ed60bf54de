package redsys

// Sign is exported for tests that need to produce validly signed
// notifications without going through Fields.
var Sign = sign
