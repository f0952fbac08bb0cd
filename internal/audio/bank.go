package audio

import (
	"path"

	"github.com/roach88/earshot/internal/studio"
)

// BankRegistry tracks which banks were loaded and keeps the master bank.
//
// Non-master bank handles are not retained; there is no unload.
type BankRegistry struct {
	sh     *shared
	master studio.Bank
	loaded []string
}

// loadBanks loads every requested bank in order, preloads the master bank's
// sample data, and fails if no master bank was among them.
func loadBanks(sh *shared, names []string) (*BankRegistry, error) {
	r := &BankRegistry{sh: sh}

	for _, name := range names {
		isMaster := path.Base(name) == MasterBankName
		if isMaster && r.master != nil {
			return nil, &ConsistencyError{
				Code:    ErrCodeDuplicateMasterBank,
				Op:      "banks.load",
				Message: "master bank requested more than once",
			}
		}

		var bank studio.Bank
		err := sh.invoke("system.load_bank_file", name, map[string]any{"path": "/" + name}, func() studio.Result {
			var res studio.Result
			bank, res = sh.system.LoadBankFile("/"+name, studio.LoadBankNormal)
			return res
		})
		if err != nil {
			return nil, err
		}
		sh.logger.Debug("bank loaded", "bank", name, "master", isMaster)
		r.loaded = append(r.loaded, name)

		if !isMaster {
			continue
		}
		if bank == nil {
			return nil, &ValidationError{Op: "banks.load", Message: name, Err: ErrNilHandle}
		}
		if err := sh.invoke("bank.load_sample_data", name, nil, bank.LoadSampleData); err != nil {
			return nil, err
		}
		r.master = bank
	}

	if r.master == nil {
		return nil, newMissingMasterBankError(names)
	}
	return r, nil
}

// Loaded returns the bank filenames loaded so far, in load order.
func (r *BankRegistry) Loaded() []string {
	out := make([]string, len(r.loaded))
	copy(out, r.loaded)
	return out
}

// masterEvents lists the master bank's event handles and cross-checks the
// result against the bank's reported count.
func (r *BankRegistry) masterEvents() ([]studio.EventDescriptionHandle, error) {
	var count int
	err := r.sh.invoke("bank.get_event_count", MasterBankName, nil, func() studio.Result {
		var res studio.Result
		count, res = r.master.EventCount()
		return res
	})
	if err != nil {
		return nil, err
	}

	buf := make([]studio.EventDescriptionHandle, count)
	var listed int
	err = r.sh.invoke("bank.get_event_list", MasterBankName, map[string]any{"capacity": count}, func() studio.Result {
		var res studio.Result
		listed, res = r.master.EventList(buf)
		return res
	})
	if err != nil {
		return nil, err
	}

	if listed != count {
		return nil, newEventCountMismatchError(count, listed)
	}
	return buf[:listed], nil
}
