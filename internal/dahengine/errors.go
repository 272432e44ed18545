package dahengine

import "errors"

var (
	errNoProgress             = errors.New("dah: step loop exceeded its iteration bound without reaching a terminal state")
	errCouldNotSynthesizeName = errors.New("dah: could not synthesize a unique branch name")
)

func errProtectedPush(branch string) error {
	return errors.New("refusing to push protected branch " + branch)
}
