package timingutils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SessionLogEntry is one line of a session log, formatted as "${sessionID}~${path}~${event}~${timestamp}~${isSuccess}".
// The start event always has `IsSuccess == true`.
type SessionLogEntry struct {
	SessionID string
	Path      string
	Event     string // "start" 或 "end"
	Timestamp time.Time
	IsSuccess bool
}

const (
	EventStart = "start"
	EventEnd   = "end"
)

func (e *SessionLogEntry) String() string {
	isSuccessStr := "T"
	if !e.IsSuccess {
		isSuccessStr = "F"
	}

	return fmt.Sprintf("%v~%v~%v~%v~%v", e.SessionID, e.Path, e.Event, SerializeTimestamp(e.Timestamp), isSuccessStr)
}

// ParseSessionLogEntry parses one line of a session log.
func ParseSessionLogEntry(line string) (*SessionLogEntry, error) {
	parts := strings.Split(line, "~")
	if len(parts) != 5 {
		return nil, fmt.Errorf("无法解析行 '%v'", line)
	}

	if parts[2] != EventStart && parts[2] != EventEnd {
		return nil, fmt.Errorf("行 '%v' 中的事件无效", line)
	}

	timestamp, err := ParseTimestamp(parts[3])
	if err != nil {
		return nil, errors.Wrapf(err, "行 '%v' 中的时间戳无效", line)
	}

	isSuccess, err := strconv.ParseBool(parts[4])
	if err != nil {
		return nil, errors.Wrapf(err, "行 '%v' 中的布尔值无效", line)
	}

	return &SessionLogEntry{SessionID: parts[0], Path: parts[1], Event: parts[2], Timestamp: timestamp, IsSuccess: isSuccess}, nil
}

// ReadSessionLog parses every line of a session log.
func ReadSessionLog(r io.Reader) ([]*SessionLogEntry, error) {
	var entries []*SessionLogEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry, err := ParseSessionLogEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "无法读取会话日志")
	}

	return entries, nil
}

// SessionFileLogger appends the start and the end of a session to a log file. The log is consumed by
// `cmd/sessionstat`.
type SessionFileLogger struct {
	SessionID string
	Path      string

	mu sync.Mutex
	f  *os.File
}

// NewSessionFileLogger opens the log file in append mode. An empty filename yields a logger that discards everything.
func NewSessionFileLogger(filename, sessionID, path string) (*SessionFileLogger, error) {
	l := &SessionFileLogger{SessionID: sessionID, Path: path}
	if filename == "" {
		return l, nil
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "无法以附加模式打开文件 %v", filename)
	}

	l.f = f
	return l, nil
}

// LogStart logs a start line with the current time.
func (l *SessionFileLogger) LogStart() error {
	return l.write(&SessionLogEntry{SessionID: l.SessionID, Path: l.Path, Event: EventStart, Timestamp: time.Now(), IsSuccess: true})
}

// LogEnd logs an end line with the current time. The session is a success if `err` is nil.
func (l *SessionFileLogger) LogEnd(err error) error {
	return l.write(&SessionLogEntry{SessionID: l.SessionID, Path: l.Path, Event: EventEnd, Timestamp: time.Now(), IsSuccess: err == nil})
}

func (l *SessionFileLogger) Close() error {
	if l.f == nil {
		return nil
	}

	return l.f.Close()
}

func (l *SessionFileLogger) write(entry *SessionLogEntry) error {
	if l.f == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.WriteString(entry.String() + "\n"); err != nil {
		return errors.Wrapf(err, "无法往文件 %v 中添加内容", l.f.Name())
	}

	return nil
}
