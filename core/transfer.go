package core

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ftpsession/config"
	"ftpsession/legacy"
	"ftpsession/logger"
	"ftpsession/protocols"
	"ftpsession/session"
)

type TransferManager struct {
	HistoryManager *HistoryManager
	Config         *config.Config
	sessionOpts    []session.Option
	local          *protocols.LocalFileSystem
}

// NewTransferManager runs jobs against the server in cfg. opts are applied
// to every session after the configured ones.
func NewTransferManager(hm *HistoryManager, cfg *config.Config, opts ...session.Option) *TransferManager {
	return &TransferManager{
		HistoryManager: hm,
		Config:         cfg,
		sessionOpts:    opts,
		local:          &protocols.LocalFileSystem{RootPath: cfg.Session.LocalRoot},
	}
}

// NewFacade builds a disconnected facade configured from cfg.
func NewFacade(cfg *config.Config, opts ...session.Option) (*legacy.Facade, error) {
	scheme, err := protocols.ParseScheme(cfg.Session.Scheme)
	if err != nil {
		return nil, err
	}
	tt, err := config.ParseTransferType(cfg.Session.TransferType)
	if err != nil {
		return nil, err
	}
	eol, err := config.ParseLineEnding(cfg.Session.LineEnding)
	if err != nil {
		return nil, err
	}

	log := logger.Component("session")
	transportOpts := cfg.Transport.Options()
	transportOpts.Logger = log

	s := session.New(append([]session.Option{
		session.WithTransportFactory(protocols.NewFactory(transportOpts)),
		session.WithLogger(log),
		session.WithLineEnding(eol),
		session.WithChunkSize(cfg.Session.ChunkSize),
		session.WithLocalRoot(cfg.Session.LocalRoot),
	}, opts...)...)
	if err := s.SetScheme(scheme); err != nil {
		return nil, err
	}

	f := legacy.New(s, legacy.WithLogger(log))
	f.SetServerName(cfg.Session.Server)
	f.SetUserID(cfg.Session.User)
	f.SetPassword(cfg.Session.Password)
	f.SetPassiveMode(cfg.Session.Passive)
	f.SetOverwrite(cfg.Session.Overwrite)
	if err := f.SetTransferType(legacyTransferType(tt)); err != nil {
		return nil, err
	}
	return f, nil
}

func legacyTransferType(t protocols.TransferType) int64 {
	if t == protocols.Binary {
		return legacy.TransferTypeBinary
	}
	return legacy.TransferTypeASCII
}

// jobRun carries the per-run state of one job.
type jobRun struct {
	job       config.Job
	facade    *legacy.Facade
	history   *JobHistory
	log       zerolog.Logger
	server    string
	user      string
	password  string
	ttype     int64
	overwrite bool
	files     int
	failure   string
	errorNum  int64
}

// transferred reports whether path is already in the job's history.
func (r *jobRun) transferred(path string) bool {
	at, ok := r.history.GetTransferTime(path)
	if ok {
		r.log.Info().Str("file", path).Time("transferred_at", at).Msg("already transferred, skipping")
	}
	return ok
}

func (r *jobRun) fail() {
	r.errorNum = r.facade.ErrorNum()
	r.failure = r.facade.ErrorString()
}

func (tm *TransferManager) RunJob(job config.Job) error {
	runID := uuid.NewString()
	log := logger.L.With().Str("job", job.Name).Str("run", runID).Logger()
	log.Info().Str("action", job.Action).Msg("starting job")
	started := time.Now()

	f, err := NewFacade(tm.Config, tm.sessionOpts...)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	defer f.Disconnect()

	r := &jobRun{
		job:       job,
		facade:    f,
		history:   tm.HistoryManager.GetJobHistory(job.Name),
		log:       log,
		server:    f.ServerName(),
		user:      f.UserID(),
		password:  f.Password(),
		ttype:     f.TransferType(),
		overwrite: f.Overwrite(),
	}
	if job.Auth != nil {
		r.server, r.user, r.password = job.Auth.Address(), job.Auth.User, job.Auth.Password
	}
	if job.TransferType != "" {
		tt, err := config.ParseTransferType(job.TransferType)
		if err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		r.ttype = legacyTransferType(tt)
	}
	if job.Overwrite != nil {
		r.overwrite = *job.Overwrite
	}

	ok := tm.dispatch(r)

	r.history.AddRun(RunRecord{
		ID:       runID,
		Started:  started,
		Duration: time.Since(started),
		Success:  ok,
		Files:    r.files,
		ErrorNum: r.errorNum,
		Error:    r.failure,
	})
	if err := tm.HistoryManager.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save history")
	}

	if !ok {
		log.Error().Int64("code", r.errorNum).Str("error", r.failure).Msg("job failed")
		return fmt.Errorf("job %s failed: %s", job.Name, r.failure)
	}
	log.Info().Int("files", r.files).Dur("elapsed", time.Since(started)).Msg("finished job")
	return nil
}

func (tm *TransferManager) dispatch(r *jobRun) bool {
	f, job := r.facade, r.job
	var ok bool
	switch job.Action {
	case "get":
		if job.SourceRegex != "" {
			return tm.getMatching(r)
		}
		return tm.getOne(r)
	case "put":
		if job.Once && r.transferred(job.Source) {
			return true
		}
		if !tm.local.Exists(job.Source) {
			r.errorNum = legacy.GenericError
			r.failure = fmt.Sprintf("%d: local file %s not found", legacy.GenericError, job.Source)
			return false
		}
		ok = f.QPutFile(r.server, r.user, r.password, job.Source, job.Target, r.ttype)
		if ok {
			r.history.Add(job.Source)
			r.files++
		}
	case "delete":
		ok = f.QDeleteFile(r.server, r.user, r.password, job.Source)
		if ok {
			// a new file under the same name is fetched again
			r.history.Remove(job.Source)
		}
	case "mkdir":
		ok = f.QMakeDir(r.server, r.user, r.password, job.Source)
	case "rmdir":
		ok = f.QRemoveDir(r.server, r.user, r.password, job.Source)
	case "rename":
		ok = f.QRename(r.server, r.user, r.password, job.Source, job.Target)
	default:
		r.errorNum = legacy.GenericError
		r.failure = fmt.Sprintf("unknown action %q", job.Action)
		return false
	}
	if !ok {
		r.fail()
	}
	return ok
}

func (tm *TransferManager) getOne(r *jobRun) bool {
	job := r.job
	if job.Once && r.transferred(job.Source) {
		return true
	}
	if dir := filepath.Dir(job.Target); dir != "." {
		if err := tm.local.MkdirAll(dir); err != nil {
			r.errorNum, r.failure = legacy.GenericError, err.Error()
			return false
		}
	}
	if !r.facade.QGetFile(r.server, r.user, r.password, job.Source, job.Target, r.ttype, r.overwrite) {
		r.fail()
		return false
	}
	r.history.Add(job.Source)
	r.files++
	return true
}

// getMatching downloads every name in the Source directory matching
// SourceRegex into the Target directory over a single connection. A failed
// file does not stop the rest.
func (tm *TransferManager) getMatching(r *jobRun) bool {
	f, job := r.facade, r.job
	re, err := regexp.Compile(job.SourceRegex)
	if err != nil {
		r.errorNum, r.failure = legacy.GenericError, err.Error()
		return false
	}
	if err := tm.local.MkdirAll(job.Target); err != nil {
		r.errorNum, r.failure = legacy.GenericError, err.Error()
		return false
	}

	f.SetServerName(r.server)
	f.SetUserID(r.user)
	f.SetPassword(r.password)
	f.SetOverwrite(r.overwrite)
	_ = f.SetTransferType(r.ttype)

	if !f.GetDir(job.Source) {
		r.fail()
		return false
	}

	ok := true
	for _, name := range f.DirItems() {
		base := path.Base(name)
		if !re.MatchString(base) {
			continue
		}
		remote := path.Join(job.Source, base)
		if job.Once && r.history.Has(remote) {
			continue
		}
		if !f.GetFile(remote, filepath.Join(job.Target, base)) {
			r.fail()
			r.log.Error().Str("file", remote).Str("error", r.failure).Msg("failed to transfer")
			ok = false
			continue
		}
		r.log.Info().Str("file", remote).Msg("transferred file")
		r.history.Add(remote)
		r.files++
	}
	return ok
}
