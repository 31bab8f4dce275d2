package pool

import (
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickbitmap"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/defistate/clamm-engine/protocols/clamm/tick"
	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Storage is the keyed state of a pool.
type Storage struct {
	Ticks     storage.Map[int32, tick.Info]
	Positions storage.Map[position.ID, position.Info]
	Bitmap    storage.Map[int16, uint256.Int]

	// journal stages word store writes so a commit reaches the store in one batch
	journal *storage.Journal
}

// NewMemoryStorage returns an empty Storage held in memory.
func NewMemoryStorage() Storage {
	return Storage{
		Ticks:     storage.NewMemoryMap[int32, tick.Info](),
		Positions: storage.NewMemoryMap[position.ID, position.Info](),
		Bitmap:    storage.NewMemoryMap[int16, uint256.Int](),
	}
}

// NewWordStorage returns the Storage of the pool at addr inside store.
// Writes of one pool operation reach store as a single batch.
func NewWordStorage(store storage.Store, addr common.Address) Storage {
	journal := storage.NewJournal(store)
	return Storage{
		Ticks: storage.NewWordMap[int32, tick.Info](
			journal, storage.Namespace("tick", addr), storage.Int32Key, tick.Codec{},
		),
		Positions: storage.NewWordMap[position.ID, position.Info](
			journal, storage.Namespace("posn", addr), positionKey, position.Codec{},
		),
		Bitmap: storage.NewWordMap[int16, uint256.Int](
			journal, storage.Namespace("bmap", addr), storage.Int16Key, tickbitmap.WordCodec{},
		),
		journal: journal,
	}
}

func positionKey(id position.ID) []byte {
	return storage.Uint64Key(uint64(id))
}
