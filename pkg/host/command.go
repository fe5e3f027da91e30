/*
Copyright (c) 2020 SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package host

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// TrustedDirs is the default executable search path for host commands.
var TrustedDirs = []string{"/usr/bin", "/bin", "/usr/local/bin"}

// LookPath searches name only in the given directories, ignoring the
// process PATH. Relative directories are rejected.
func LookPath(name string, dirs []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("command %q must be a bare name", name)
	}

	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			logrus.Warnf("Ignoring relative search directory %s", dir)
			continue
		}

		path := filepath.Join(dir, name)
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			continue
		}
		if fi.Mode()&0111 != 0 {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in %s", name, strings.Join(dirs, ":"))
}

// NewCommandWithStdout creates a new Command with stderr wired to our standard logger
// which resolves name in dirs and runs with PATH restricted to dirs
func NewCommandWithStdout(dirs []string, name string, arg ...string) (*exec.Cmd, error) {
	path, err := LookPath(name, dirs)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, arg...)
	cmd.Env = []string{"PATH=" + strings.Join(dirs, ":"), "LC_ALL=C"}

	cmd.Stderr = logrus.NewEntry(logrus.StandardLogger()).
		WithField("cmd", cmd.Args[0]).
		WithField("std", "err").
		WriterLevel(logrus.WarnLevel)

	return cmd, nil
}
