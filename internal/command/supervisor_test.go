package command

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SupervisorSuite struct {
	suite.Suite

	dir        string
	installLog *InstallLog
	dryRunLog  *DryRunLog
}

func (s *SupervisorSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.installLog = NewInstallLog(filepath.Join(s.dir, "install.log"))
	s.dryRunLog = NewDryRunLog(filepath.Join(s.dir, "dry-run.log"))
}

func (s *SupervisorSuite) TearDownTest() {
	s.Require().NoError(s.installLog.Close())
	s.Require().NoError(s.dryRunLog.Close())
}

func (s *SupervisorSuite) supervisor(dry bool) *Supervisor {
	return NewSupervisor(Options{
		DryRun:       dry,
		InstallLog:   s.installLog,
		DryRunLog:    s.dryRunLog,
		PollInterval: 5 * time.Millisecond,
	})
}

func (s *SupervisorSuite) read(path string) string {
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	return string(data)
}

func (s *SupervisorSuite) TestDryRunRecordsWithoutRunning() {
	marker := filepath.Join(s.dir, "must-not-exist")
	sup := s.supervisor(true)

	code, err := sup.Execute("touch "+Quote(marker), nil)
	s.Require().NoError(err)
	s.Equal(CodeSuccess, code)

	code, err = sup.Execute("exit 7", func() {})
	s.Require().NoError(err)
	s.Equal(CodeSuccess, code)

	s.NoFileExists(marker)
	s.Equal("touch "+Quote(marker)+"\nexit 7\n", s.read(s.dryRunLog.Path()))

	// the diagnostic log sees dry-run commands too
	s.Contains(s.read(s.installLog.Path()), "$ exit 7")
}

func (s *SupervisorSuite) TestDryRunLogTruncatedAtFirstUse() {
	s.Require().NoError(os.WriteFile(s.dryRunLog.Path(), []byte("stale\n"), 0644))

	_, err := s.supervisor(true).Execute("true", nil)
	s.Require().NoError(err)

	s.Equal("true\n", s.read(s.dryRunLog.Path()))
}

func (s *SupervisorSuite) TestSynchronousExitStatus() {
	sup := s.supervisor(false)

	code, err := sup.Execute("exit 0", nil)
	s.NoError(err)
	s.Equal(CodeSuccess, code)

	code, err = sup.Execute("exit 3", nil)
	s.NoError(err)
	s.Equal(3, code)
}

func (s *SupervisorSuite) TestOutputGoesToInstallLog() {
	_, err := s.supervisor(false).Execute("echo hello-from-child; echo oops >&2", nil)
	s.Require().NoError(err)

	log := s.read(s.installLog.Path())
	s.Contains(log, "$ echo hello-from-child")
	s.Contains(log, "hello-from-child\n")
	s.Contains(log, "oops\n")
}

func (s *SupervisorSuite) TestPolledExitStatusAndTicks() {
	ticks := 0
	code, err := s.supervisor(false).Execute("sleep 0.2; exit 4", func() { ticks++ })

	s.NoError(err)
	s.Equal(4, code)
	s.Greater(ticks, 1)
}

func (s *SupervisorSuite) TestSignalIsDistinct() {
	for name, tick := range map[string]TickFunc{"blocking": nil, "polled": func() {}} {
		s.Run(name, func() {
			code, err := s.supervisor(false).Execute("kill -9 $$", tick)

			s.Equal(CodeSignaled, code)
			var sigErr *SignalError
			s.Require().ErrorAs(err, &sigErr)
			s.Equal(syscall.SIGKILL, sigErr.Signal)
		})
	}
}

func (s *SupervisorSuite) TestSupervisorFailureWhenShellMissing() {
	sup := NewSupervisor(Options{Shell: filepath.Join(s.dir, "no-such-shell"), InstallLog: s.installLog})

	code, err := sup.Execute("true", nil)
	s.Error(err)
	s.Equal(CodeSupervisorFailure, code)

	code, err = sup.Execute("true", func() {})
	s.Error(err)
	s.Equal(CodeSupervisorFailure, code)
}

func (s *SupervisorSuite) TestChrootFailureIsGeneric() {
	code, err := s.supervisor(false).ExecuteChroot(filepath.Join(s.dir, "missing-root"), "true", nil)

	s.ErrorIs(err, ErrChroot)
	s.Equal(CodeFailure, code)
}

func (s *SupervisorSuite) TestChrootDryRunRecordsWrappedCommand() {
	_, err := s.supervisor(true).ExecuteChroot("/mnt", "update-grub", nil)
	s.Require().NoError(err)

	s.Equal("chroot '/mnt' /bin/sh -c 'update-grub'\n", s.read(s.dryRunLog.Path()))
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorSuite))
}

func TestInstallLogHeaderAndTail(t *testing.T) {
	log := NewInstallLog(filepath.Join(t.TempDir(), "install.log"))
	defer log.Close()

	log.Header("Partitioning")
	for i := 0; i < 5; i++ {
		log.Printf("line %d", i)
	}

	tail, err := log.Tail(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, tail)

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), headerRule+"\n  Partitioning\n"+headerRule))
}

func TestNilInstallLogDiscards(t *testing.T) {
	var log *InstallLog

	log.Header("x")
	log.Printf("y")
	tail, err := log.Tail(10)
	assert.NoError(t, err)
	assert.Empty(t, tail)
	assert.NoError(t, log.Close())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'/dev/sda'`, Quote("/dev/sda"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}
