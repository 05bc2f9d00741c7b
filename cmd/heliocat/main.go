/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command heliocat is a command-line interface for retrieving
// heliophysics time-series data from remote catalog providers.
package main

import (
	"fmt"
	"os"

	"github.com/spacephys/heliocat/heliocatutil"
)

func main() {
	if err := heliocatutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
