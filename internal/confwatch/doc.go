// Package confwatch watches a key=value overrides file for runtime tuning.
//
// The overrides file carries settings an operator may flip on a live
// system without restarting the daemon, separate from the main YAML
// configuration which is loaded once at startup:
//
//	# /etc/railgate/overrides.conf
//	log.level=debug
//	domain.gpu_gx.skip_enable=1
//
// The watcher polls the file's modification time on a fixed interval
// and re-parses it when it changes. Subscribers are notified per key:
//
//	w := confwatch.New(path, 5*time.Second, logger)
//	w.Subscribe("log.level", func(key, value string, present bool) {
//	    logger.SetLevel(value)
//	})
//	w.SubscribePrefix("domain.", applyDomainOverride)
//	w.Start()
//	defer w.Stop()
//
// A deleted or unreadable file, or one whose lines are all malformed,
// is treated as a failed parse: the previous overrides stay in force
// and no listeners fire. Keys are only withdrawn, with a present=false
// notification, when a file that still parses drops them.
//
// Polling rather than inotify keeps the watcher portable and handles
// editors that replace the file instead of rewriting it in place.
package confwatch
