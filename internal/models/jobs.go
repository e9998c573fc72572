package models

import (
	"fmt"
	"time"
)

// JobID identifies an install job for the lifetime of the process.
type JobID uint64

// String formats the id the way it is shown in the dashboard and logs.
func (id JobID) String() string {
	return fmt.Sprintf("job-%d", uint64(id))
}

// JobState is the lifecycle state of an install job.
type JobState int

const (
	JobQueued JobState = iota
	JobDownloading
	JobInstalling
	JobSucceeded
	JobFailed
)

// String returns a human-readable state label.
func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobDownloading:
		return "downloading"
	case JobInstalling:
		return "installing"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s JobState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *JobState) UnmarshalText(text []byte) error {
	for st := JobQueued; st <= JobFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job state %q", text)
}

// Terminal reports whether s is Succeeded or Failed. Terminal states are absorbing.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Active reports whether a job in state s still occupies its package slot.
func (s JobState) Active() bool {
	return !s.Terminal()
}

// CanTransition reports whether the lifecycle allows moving from s to next.
//
//	Queued      -> Downloading | Failed
//	Downloading -> Installing  | Failed
//	Installing  -> Succeeded   | Failed
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobQueued:
		return next == JobDownloading || next == JobFailed
	case JobDownloading:
		return next == JobInstalling || next == JobFailed
	case JobInstalling:
		return next == JobSucceeded || next == JobFailed
	default:
		return false
	}
}

// FailureKind classifies why a job failed.
type FailureKind int

const (
	FailureNetwork FailureKind = iota + 1
	FailureVerification
	FailureProcess
	FailureCancelled
)

// String returns the failure kind label.
func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureVerification:
		return "verification"
	case FailureProcess:
		return "process"
	case FailureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FailureKind) UnmarshalText(text []byte) error {
	for fk := FailureNetwork; fk <= FailureCancelled; fk++ {
		if fk.String() == string(text) {
			*k = fk
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", text)
}

// Failure describes why a job ended in JobFailed.
type Failure struct {
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

func (f Failure) String() string {
	if f.Message == "" {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Message
}

// InstallJob is one user-requested install. Only the orchestrator mutates it;
// everyone else receives copies.
type InstallJob struct {
	ID          JobID    `json:"id" yaml:"id"`
	PackageID   string   `json:"package_id" yaml:"package_id"`
	PackageName string   `json:"package_name" yaml:"package_name"`
	State       JobState `json:"state" yaml:"state"`
	Failure     *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`

	// Progress is in [0,1]; Indeterminate is set while the total is unknown
	// or while the installer process runs.
	Progress      float64 `json:"progress" yaml:"progress"`
	Indeterminate bool    `json:"indeterminate" yaml:"indeterminate"`
	BytesReceived int64   `json:"bytes_received" yaml:"bytes_received"`
	BytesTotal    int64   `json:"bytes_total" yaml:"bytes_total"`
	Attempts      int     `json:"attempts" yaml:"attempts"`
	ExitCode      *int    `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`

	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Clone returns a deep copy safe to hand outside the orchestrator.
func (j InstallJob) Clone() InstallJob {
	if j.Failure != nil {
		f := *j.Failure
		j.Failure = &f
	}
	if j.ExitCode != nil {
		c := *j.ExitCode
		j.ExitCode = &c
	}
	return j
}
