//go:build !windows

package seal

// DPAPI is only available on Windows.
type DPAPI struct{}

var _ Sealer = (*DPAPI)(nil)

func NewDPAPI() (*DPAPI, error) { return nil, ErrUnsupported }

func (*DPAPI) Seal([]byte) ([]byte, error) { return nil, ErrUnsupported }

func (*DPAPI) Open([]byte) ([]byte, error) { return nil, ErrUnsupported }
