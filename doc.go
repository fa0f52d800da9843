// Copyright (c) 2024 The sdg developers. All rights reserved.
// Project site: https://github.com/gotmc/sdg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

/*
Package sdg controls Siglent SDG series signal generators by sending SCPI
commands over a Transport and parsing the responses.

A driver is created around any Transport, for example a Conn over a raw TCP
socket:

	sock, err := net.Dial("tcp", "192.168.1.20:5025")
	if err != nil {
		log.Fatal(err)
	}
	defer sock.Close()
	fg := sdg.NewSDG2000X(sdg.NewConn(sock))
	if err := fg.SetWaveformType(sdg.Ch1, sdg.Sine); err != nil {
		log.Fatal(err)
	}
	if err := fg.SetFrequency(sdg.Ch1, 1000); err != nil {
		log.Fatal(err)
	}

Siglent instruments accept out of range values without replying; they record
a fault in the error queue instead. Call CheckErrors or ErrorQueue after a
sequence of commands to find out whether the instrument rejected any of them.
*/
package sdg
