// Package domain models ASOS one-minute station pressure data and the
// transformations that turn a monthly source file into archive samples.
//
// # Data Source
//
// NCEI publishes one file per station and month of the ASOS one-minute
// "page 2" product (dataset 6406), e.g.
//
//	https://www.ncei.noaa.gov/pub/data/asos-onemin/6406-2017/64060KMLB201701.dat
//
// Files for a month appear some days after it ends; requests for later months
// fail, which the pipeline reports as [ErrDataUnavailable].
//
// # Line Format
//
// One observation per line, fixed width, fields separated by blanks:
//
//	12838KMLB MLB2017010100000500   0.102 N     0.095             30.012  30.013  30.012   62   57
//	^station  ^DateTime token       ^notes (3)                    ^Pres1  ^Pres2  ^Pres3  ^Tmp ^Dwpt
//
// The DateTime token is the three-letter station id, the local standard time
// as YYYYMMDDHHMM, and the UTC hour and minute. Only the local timestamp and
// the three pressure sensors (inches of mercury) are kept.
//
// # Parsing
//
// Column boundaries are inferred from the file itself ([InferColumns]): any
// character position that is non-blank in one of the first rows belongs to a
// column. Some files are misaligned (stray characters bridge two fields), so
// inference yields the wrong number of columns or an unparseable timestamp.
// Those files are re-read with fixed character offsets ([Layout].FixedTimestamp
// and FixedPressure). A file that fails both ways is rejected.
//
// Timestamps are station standard time with no daylight saving (EST, UTC-5,
// for KMLB) and are stored in UTC.
//
// Pressure fields that are blank or non-numeric ("M", "////") become missing
// readings; they never fail a file.
//
// # Normalization
//
// The archive holds one sample every five minutes:
//
//	Pressure (Pa) = mean(available Pres1..Pres3) × 3386.38816
//	MSLP (Pa)     = Pressure (Pa) + 200
//
// Duplicated timestamps keep the first line of the file. Grid slots with no
// source line, or with no usable reading, are kept as missing samples so gaps
// remain visible in the archive.
//
// # Merging
//
// [Merge] keeps the archive's sample whenever the batch repeats a timestamp.
// Re-ingesting a month therefore leaves the archive unchanged.
package domain
