package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/model"
	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
)

// ErrUnknownBlockType the block type is not morning, afternoon or overtime
var ErrUnknownBlockType = pkgerrors.New(pkgerrors.KindValidation, "unknown_block_type", "unknown block type")

// blockEnds canonical end-of-block wall-clock times (hour, minute)
var blockEnds = map[model.BlockType][2]int{
	model.BlockMorning:   {12, 0},
	model.BlockAfternoon: {18, 0},
	model.BlockOvertime:  {20, 0},
}

var minutesPerHour = decimal.NewFromInt(60)

// BlockHours calculator output. Anomalous marks a clamped computation where
// time-in was at or after the end of the block. BlockEnd is always the
// canonical end of the block, even when TimeOut was clamped.
type BlockHours struct {
	TimeOut     time.Time
	BlockEnd    time.Time
	HoursEarned decimal.Decimal
	Anomalous   bool
}

// BlockEnd returns the end of block on the calendar date of day, in day's location.
func BlockEnd(day time.Time, block model.BlockType) (time.Time, error) {
	hm, ok := blockEnds[block]
	if !ok {
		return time.Time{}, ErrUnknownBlockType.WithDetail("%q", string(block))
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hm[0], hm[1], 0, 0, day.Location()), nil
}

// ComputeBlockHours closes a session at the canonical end of its block.
func ComputeBlockHours(timeIn time.Time, block model.BlockType) (BlockHours, error) {
	end, err := BlockEnd(timeIn, block)
	if err != nil {
		return BlockHours{}, err
	}
	res := hoursUntil(timeIn, end)
	res.BlockEnd = end
	return res, nil
}

// computeClosedHours closes a session at timeOut, counting nothing past the
// end of the block. The recorded time-out is never earlier than time-in.
func computeClosedHours(timeIn, timeOut time.Time, block model.BlockType) (BlockHours, error) {
	end, err := BlockEnd(timeIn, block)
	if err != nil {
		return BlockHours{}, err
	}
	countUntil := end
	if timeOut.Before(end) {
		countUntil = timeOut
	}
	res := hoursUntil(timeIn, countUntil)
	res.BlockEnd = end
	res.TimeOut = timeOut
	if timeOut.Before(timeIn) {
		res.TimeOut = timeIn
	}
	return res, nil
}

// hoursUntil whole elapsed minutes from start to end, as hours rounded
// half-up to 2dp. A span that is not positive yields zero hours, flagged,
// with TimeOut clamped to start.
func hoursUntil(start, end time.Time) BlockHours {
	if !end.After(start) {
		return BlockHours{TimeOut: start, HoursEarned: decimal.Zero, Anomalous: true}
	}
	minutes := int64(end.Sub(start) / time.Minute)
	hours := decimal.NewFromInt(minutes).Div(minutesPerHour).Round(2)
	return BlockHours{TimeOut: end, HoursEarned: hours}
}

func toBlockHoursResult(res BlockHours) *dto.BlockHoursResult {
	return &dto.BlockHoursResult{
		TimeOut:     res.TimeOut.Format(dateTimeLayout),
		BlockEnd:    res.BlockEnd.Format(dateTimeLayout),
		HoursEarned: res.HoursEarned.StringFixed(2),
		Anomalous:   res.Anomalous,
	}
}
