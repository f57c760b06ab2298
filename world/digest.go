package world

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/internal"
	"github.com/zeebo/xxh3"
)

// Digest returns a hash of the state of every entity in the world. Two worlds that went through the same
// ticks with the same inputs have the same digest.
func (w *World) Digest() uint64 {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer internal.BufferPool.Put(buf)

	for e := range w.Entities() {
		writeEntity(buf, e)
	}
	return xxh3.Hash(buf.Bytes())
}

func writeEntity(buf *bytes.Buffer, e *entity.Entity) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(e.ID()))
	buf.Write(scratch[:])

	writeVec3(buf, e.Position)
	writeVec3(buf, e.PrevPosition)
	writeVec3(buf, e.Velocity)
	writeVec3(buf, e.Rotation)
	writeFloat(buf, e.Health)

	onGround := byte(0)
	if e.OnGround {
		onGround = 1
	}
	buf.WriteByte(byte(e.Phase))
	buf.WriteByte(onGround)

	binary.LittleEndian.PutUint32(scratch[:4], uint32(e.StunTicks))
	binary.LittleEndian.PutUint32(scratch[4:], uint32(e.JumpDelay))
	buf.Write(scratch[:])
}

func writeVec3(buf *bytes.Buffer, v mgl32.Vec3) {
	for _, f := range v {
		writeFloat(buf, f)
	}
}

func writeFloat(buf *bytes.Buffer, f float32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f))
	buf.Write(scratch[:])
}
