/*
Package meanface computes the average face of a collection of portraits.

Every image of the source directory comes with a landmark sidecar file, holding
one tab separated "x y" pair per line. The faces are aligned on their outer eye
corners, then each of them is morphed, triangle by triangle, onto the mean
landmark positions before being averaged into a single image.

The package provides a command line interface. To check the supported commands type:

	$ meanface --help

The landmark files can be generated with the pigo face detector:

	$ meanface landmarks --in ./faces --cascade-dir ./cascade

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"

		"github.com/esimov/meanface"
	)

	func main() {
		p := meanface.NewProcessor()

		res, err := p.Process(context.Background(), "./faces", "average.jpg")
		if err != nil {
			fmt.Printf("Error averaging the faces: %s", err.Error())
			return
		}
		fmt.Printf("%d faces used, %d skipped\n", res.Used, len(res.Skipped))
	}
*/
package meanface
