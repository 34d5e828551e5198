package fattree

import "github.com/sirupsen/logrus"

// Option configures a volume while mounting.
type Option func(fs *Fs)

// WithLogger sets the logger used for debug output and warnings about malformed directories.
// Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(fs *Fs) {
		if log != nil {
			fs.log = log
		}
	}
}

// WithStrictChecks validates the boot sector before mounting.
// Without it any image with a plausible geometry is accepted,
// which may help with not perfectly standard FAT filesystems.
func WithStrictChecks() Option {
	return func(fs *Fs) {
		fs.strict = true
	}
}
