package log

// TB is the subset of testing.TB the Testing logger needs.
type TB interface {
	Logf(string, ...any)
	Helper()
}

// Testing routes log lines to the test log so they show up with -v or on failure.
type Testing struct {
	TB
	Default
}

// NewTesting returns a logger writing to tb.
func NewTesting(tb TB) *Testing {
	return &Testing{TB: tb}
}

func (l *Testing) Debug(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("DEB ", m, s, l.Tags))
}

func (l *Testing) Info(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("INF ", m, s, l.Tags))
}

func (l *Testing) Warn(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("WRN ", m, s, l.Tags))
}

func (l *Testing) Error(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("ERR ", m, s, l.Tags))
}

func (l *Testing) With(tags ...any) Logger {
	return &Testing{TB: l.TB, Default: *l.Default.with(tags)}
}
